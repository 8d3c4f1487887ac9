// Package metrics exposes Prometheus counters for reply decisions, backend
// calls and watchdog violations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the counters. A nil *Collector is a no-op.
type Collector struct {
	decisions  *prometheus.CounterVec
	strategies *prometheus.CounterVec
	backends   *prometheus.CounterVec
	violations *prometheus.CounterVec
}

// New creates the counters and registers them on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replybot_decisions_total",
			Help: "Reply decisions by outcome",
		}, []string{"outcome"}),
		strategies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replybot_strategy_total",
			Help: "Strategies picked",
		}, []string{"strategy"}),
		backends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replybot_backend_calls_total",
			Help: "External backend calls by result",
		}, []string{"backend", "result"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replybot_watchdog_violations_total",
			Help: "Policy violations seen by the watchdog",
		}, []string{"rule"}),
	}
	for _, col := range []prometheus.Collector{c.decisions, c.strategies, c.backends, c.violations} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Decision counts one composer outcome.
func (c *Collector) Decision(outcome string) {
	if c == nil {
		return
	}
	c.decisions.WithLabelValues(outcome).Inc()
}

// Strategy counts one picked strategy.
func (c *Collector) Strategy(name string) {
	if c == nil {
		return
	}
	c.strategies.WithLabelValues(name).Inc()
}

// BackendCall counts one backend call result.
func (c *Collector) BackendCall(backend, result string) {
	if c == nil {
		return
	}
	c.backends.WithLabelValues(backend, result).Inc()
}

// Violation counts one watchdog violation.
func (c *Collector) Violation(rule string) {
	if c == nil {
		return
	}
	c.violations.WithLabelValues(rule).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Command replybot decides on replies to collector posts and audits the
// replies the agent is about to send.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cpunion/reply-bot/pkg/compose"
	"github.com/cpunion/reply-bot/pkg/config"
	"github.com/cpunion/reply-bot/pkg/gate"
	"github.com/cpunion/reply-bot/pkg/llm"
	"github.com/cpunion/reply-bot/pkg/logging"
	"github.com/cpunion/reply-bot/pkg/metrics"
	"github.com/cpunion/reply-bot/pkg/persona"
	"github.com/cpunion/reply-bot/pkg/price"
	"github.com/cpunion/reply-bot/pkg/visual"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// app holds what every command needs. It is filled in PersistentPreRunE.
type app struct {
	configPath string
	logLevel   string

	cfg      config.Config
	log      *logrus.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "replybot",
		Short: "Reply decisions for trading card collector posts",
		Long: `replybot decides whether to answer a post and what to say, and audits
the replies the agent logs before it sends them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $REPLYBOT_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override")

	root.AddCommand(newComposeCmd(a))
	root.AddCommand(newClassifyCmd(a))
	root.AddCommand(newEventCmd(a))
	root.AddCommand(newWatchdogCmd(a))
	root.AddCommand(newAuditCmd(a))
	root.AddCommand(newRunCmd(a))
	return root
}

func (a *app) init() error {
	boot := logging.New("info", "text")
	config.LoadEnv(boot)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Logging.Level, cfg.Logging.Format)

	a.registry = prometheus.NewRegistry()
	a.metrics, err = metrics.New(a.registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	return nil
}

// newComposer wires the composer from configuration. Optional collaborators
// that cannot be built are logged and left out, which only narrows the
// cascade.
func (a *app) newComposer(ctx context.Context) *compose.Composer {
	deps := compose.DefaultDeps()
	deps.Scam = gate.NewHeuristicScamGate(a.cfg.Scam.BlockedAuthors...)
	deps.Styler = persona.NewStyler(a.cfg.Persona.LeadIn, a.cfg.Persona.Fallback)
	deps.CharLimit = a.cfg.Composer.CharLimit
	deps.Log = a.log
	deps.Metrics = a.metrics

	if a.cfg.Price.Endpoint != "" {
		engine, err := price.NewHTTPEngine(price.HTTPConfig{
			Endpoint: a.cfg.Price.Endpoint,
			APIKey:   a.cfg.Price.APIKey,
			Timeout:  a.cfg.Price.Timeout,
			CacheTTL: a.cfg.Price.CacheTTL,
			Log:      a.log,
		})
		if err != nil {
			a.log.WithError(err).Warn("price lookups disabled")
		} else {
			deps.Price = engine
		}
	}

	if a.cfg.Visual.Enabled {
		analyzer, err := visual.NewGeminiAnalyzer(ctx, visual.Config{
			APIKey:  a.cfg.Visual.APIKey,
			Model:   a.cfg.Visual.Model,
			Timeout: a.cfg.Visual.Timeout,
		})
		if err != nil {
			a.log.WithError(err).Warn("image analysis disabled")
		} else {
			deps.Visual = analyzer
		}
	}

	members, err := llm.FromConfig(ctx, a.cfg.Backends)
	switch {
	case err != nil:
		a.log.WithError(err).Warn("generative backends disabled")
	case len(members) > 0:
		deps.Chain = llm.NewChain(
			members,
			llm.NewFailureTracker(a.cfg.Composer.FailureThreshold),
			llm.ChainConfig{BaseDelay: a.cfg.Composer.RetryBaseDelay, MaxDelay: a.cfg.Composer.RetryMaxDelay},
			a.log,
			a.metrics,
		)
	}
	return compose.New(deps)
}

// serveMetrics exposes the registry on addr until ctx ends. An empty addr
// serves nothing.
func (a *app) serveMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

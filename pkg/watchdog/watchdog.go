// Package watchdog audits the agent's reply log and stops the agent the
// moment a reply breaks policy or the log reports an interaction anomaly.
// There is no recovery: a bad public reply cannot be recalled.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cpunion/reply-bot/pkg/logging"
	"github.com/cpunion/reply-bot/pkg/metrics"
	"github.com/cpunion/reply-bot/pkg/policy"
	"github.com/cpunion/reply-bot/pkg/replylog"
)

// ErrViolation is wrapped by the error Run returns after terminating the
// agent.
var ErrViolation = errors.New("policy violation")

// ViolationError describes what triggered termination.
type ViolationError struct {
	Rule   string
	Text   string
	Detail string
	// TerminateErr is set when the supervisor failed.
	TerminateErr error
}

func (e *ViolationError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrViolation, e.Rule)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.TerminateErr != nil {
		msg += "; terminate failed: " + e.TerminateErr.Error()
	}
	return msg
}

func (e *ViolationError) Unwrap() []error {
	if e.TerminateErr != nil {
		return []error{ErrViolation, e.TerminateErr}
	}
	return []error{ErrViolation}
}

// Config configures a watchdog.
type Config struct {
	// Target identifies the agent process for the supervisor.
	Target string
	// TerminateTimeout bounds the supervisor call.
	TerminateTimeout time.Duration
}

// Watchdog checks every reply candidate in a log stream.
type Watchdog struct {
	source     Source
	supervisor Supervisor
	cfg        Config
	log        logrus.FieldLogger
	metrics    *metrics.Collector
	checked    atomic.Int64
}

// New creates a watchdog.
func New(source Source, supervisor Supervisor, cfg Config, log logrus.FieldLogger, m *metrics.Collector) *Watchdog {
	if cfg.TerminateTimeout <= 0 {
		cfg.TerminateTimeout = 10 * time.Second
	}
	return &Watchdog{
		source:     source,
		supervisor: supervisor,
		cfg:        cfg,
		log:        logging.Component(log, "watchdog"),
		metrics:    m,
	}
}

// Checked returns how many candidates passed so far.
func (w *Watchdog) Checked() int { return int(w.checked.Load()) }

// Run audits until the source ends, the context is cancelled (both return
// nil) or a violation is found. A violation terminates the target once and
// returns a *ViolationError.
func (w *Watchdog) Run(ctx context.Context) error {
	w.log.WithField("target", w.cfg.Target).Info("watchdog started")
	for {
		line, err := w.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				w.log.WithField("checked", w.checked.Load()).Info("watchdog stopped")
				return nil
			}
			return fmt.Errorf("read reply log: %w", err)
		}

		entry, ok := replylog.ParseLine(line)
		if !ok {
			continue
		}
		if v := w.inspect(entry); v != nil {
			return w.terminate(ctx, v)
		}
	}
}

// inspect returns the violation in entry, if any.
func (w *Watchdog) inspect(e replylog.Entry) *ViolationError {
	if e.Kind.IsAnomaly() {
		return &ViolationError{Rule: strings.ToLower(string(e.Kind)), Detail: e.Detail}
	}
	if vs := policy.Check(e.Text); len(vs) > 0 {
		return &ViolationError{Rule: string(vs[0].Rule), Text: e.Text, Detail: vs[0].Detail}
	}
	w.checked.Add(1)
	return nil
}

func (w *Watchdog) terminate(ctx context.Context, v *ViolationError) error {
	w.metrics.Violation(v.Rule)
	w.log.WithFields(logging.Fields{
		"rule":   v.Rule,
		"text":   v.Text,
		"detail": v.Detail,
		"target": w.cfg.Target,
	}).Error("violation found, terminating agent")

	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.TerminateTimeout)
	defer cancel()
	if err := w.supervisor.Terminate(tctx, w.cfg.Target); err != nil {
		v.TerminateErr = err
		w.log.WithError(err).Error("terminate failed")
	}
	return v
}

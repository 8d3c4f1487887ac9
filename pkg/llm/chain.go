package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"

	"github.com/cpunion/reply-bot/pkg/logging"
	"github.com/cpunion/reply-bot/pkg/metrics"
)

// Member is a backend with its own call budget.
type Member struct {
	Backend Backend
	// Timeout bounds each attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts within one call.
	Retries int
}

// ChainConfig tunes retry backoff.
type ChainConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

const defaultTimeout = 20 * time.Second

// Chain tries backends in order and returns the first non-empty reply.
type Chain struct {
	members []Member
	tracker *FailureTracker
	cfg     ChainConfig
	log     logrus.FieldLogger
	metrics *metrics.Collector
}

// NewChain creates a chain. The tracker is owned by the caller so its state
// can be shared or reset.
func NewChain(members []Member, tracker *FailureTracker, cfg ChainConfig, log logrus.FieldLogger, m *metrics.Collector) *Chain {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if tracker == nil {
		tracker = NewFailureTracker(3)
	}
	return &Chain{
		members: members,
		tracker: tracker,
		cfg:     cfg,
		log:     logging.Component(log, "llm-chain"),
		metrics: m,
	}
}

// Tracker returns the failure tracker.
func (c *Chain) Tracker() *FailureTracker { return c.tracker }

// Len returns the number of backends.
func (c *Chain) Len() int { return len(c.members) }

// Generate returns the first non-empty reply and the backend that produced
// it. ErrNoReply means every backend was skipped or failed, and it also
// matches ErrExhausted when none was left to try. A context error is
// returned as is.
func (c *Chain) Generate(ctx context.Context, p Prompt) (string, string, error) {
	tried := 0
	for _, m := range c.members {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		name := m.Backend.Name()
		if c.tracker.Exhausted(name) {
			c.metrics.BackendCall(name, "skipped")
			continue
		}

		tried++
		text, err := c.call(ctx, m, p)
		if err == nil {
			c.tracker.RecordSuccess(name)
			c.metrics.BackendCall(name, "ok")
			return text, name, nil
		}
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}

		exhausted := c.tracker.RecordFailure(name)
		c.metrics.BackendCall(name, "error")
		entry := c.log.WithError(err).WithFields(logging.Fields{
			"backend":  name,
			"failures": c.tracker.Failures(name),
		})
		if exhausted {
			entry.Warn("backend exhausted, skipping from now on")
		} else {
			entry.Warn("backend failed")
		}
	}
	if tried == 0 {
		return "", "", fmt.Errorf("%w: %w", ErrNoReply, ErrExhausted)
	}
	return "", "", ErrNoReply
}

func (c *Chain) call(ctx context.Context, m Member, p Prompt) (string, error) {
	retries := m.Retries
	if retries < 0 {
		retries = 0
	}
	policy := retrypolicy.NewBuilder[string]().
		WithBackoff(c.cfg.BaseDelay, c.cfg.MaxDelay).
		WithMaxRetries(retries).
		WithJitterFactor(0.1).
		HandleIf(func(_ string, err error) bool {
			return err != nil && ctx.Err() == nil
		}).
		Build()

	return failsafe.With(policy).WithContext(ctx).Get(func() (string, error) {
		return attempt(ctx, m, p)
	})
}

// attempt runs one bounded call. A backend that ignores its context still
// cannot hold the chain past the timeout.
func attempt(ctx context.Context, m Member, p Prompt) (string, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%s panicked: %v", m.Backend.Name(), r)}
			}
		}()
		text, err := m.Backend.Generate(actx, p)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		if strings.TrimSpace(r.text) == "" {
			return "", ErrEmpty
		}
		return strings.TrimSpace(r.text), nil
	case <-actx.Done():
		if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%s timed out after %s: %w", m.Backend.Name(), timeout, actx.Err())
		}
		return "", actx.Err()
	}
}

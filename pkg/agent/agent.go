// Package agent runs the reply loop: observed posts come in, vetted replies
// go out to the poster.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cpunion/reply-bot/pkg/compose"
	"github.com/cpunion/reply-bot/pkg/logging"
	"github.com/cpunion/reply-bot/pkg/types"
)

// Composer decides on one post.
type Composer interface {
	Decide(ctx context.Context, post types.Post, opts compose.Options) (compose.Decision, error)
}

// ReplyLog receives every reply right before it is handed out.
type ReplyLog interface {
	Candidate(text string) error
}

// Recorder audits decisions.
type Recorder interface {
	RecordDecision(ctx context.Context, post types.Post, d compose.Decision) error
}

// Outgoing is a reply ready for the poster.
type Outgoing struct {
	ID        string             `json:"id"`
	PostID    string             `json:"post_id"`
	AuthorID  string             `json:"author_id"`
	Text      string             `json:"text"`
	Meta      types.ResponseMeta `json:"meta"`
	CreatedAt time.Time          `json:"created_at"`
}

// Stats counts what the agent did.
type Stats struct {
	Received  int
	Replied   int
	Skipped   int
	Duplicate int
	Errors    int
}

// Agent consumes Inbox and produces Outbox.
type Agent struct {
	mu sync.RWMutex

	Inbox  chan types.Post
	Outbox chan Outgoing

	composer Composer
	replies  ReplyLog
	recorder Recorder
	state    *State
	log      logrus.FieldLogger

	noPrefix bool
	cooldown time.Duration

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	stats   Stats
}

// Config holds agent configuration.
type Config struct {
	InboxSize  int
	OutboxSize int
	NoPrefix   bool
	// AuthorCooldown is the minimum time between replies to one author.
	AuthorCooldown time.Duration
	// DataPath holds the persisted state. Empty keeps state in memory.
	DataPath string
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		InboxSize:      100,
		OutboxSize:     100,
		AuthorCooldown: 30 * time.Minute,
	}
}

// New creates an agent.
func New(cfg Config, composer Composer, log logrus.FieldLogger) (*Agent, error) {
	state, err := LoadState(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("load agent state: %w", err)
	}
	return &Agent{
		Inbox:    make(chan types.Post, cfg.InboxSize),
		Outbox:   make(chan Outgoing, cfg.OutboxSize),
		composer: composer,
		state:    state,
		log:      logging.Component(log, "agent"),
		noPrefix: cfg.NoPrefix,
		cooldown: cfg.AuthorCooldown,
	}, nil
}

// SetReplyLog sets where replies are logged before they go out.
func (a *Agent) SetReplyLog(l ReplyLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.replies = l
}

// SetRecorder sets the decision auditor.
func (a *Agent) SetRecorder(r Recorder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recorder = r
}

// State returns the agent's reply memory.
func (a *Agent) State() *State { return a.state }

// Stats returns a snapshot of the counters.
func (a *Agent) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Start begins the main loop. It stops when ctx is cancelled or Stop is
// called.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("agent already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.running = true
	a.mu.Unlock()

	go a.run(ctx, a.done)
	return nil
}

// Done is closed when the main loop exits.
func (a *Agent) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done
}

// Stop stops the main loop and persists state.
func (a *Agent) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return fmt.Errorf("agent not running")
	}
	a.running = false
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	cancel()
	<-done
	return a.state.Save()
}

// run is the main event loop.
func (a *Agent) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case post, ok := <-a.Inbox:
			if !ok {
				return
			}
			out, err := a.Handle(ctx, post)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.log.WithError(err).WithField("post", post.ID).Warn("post failed")
				continue
			}
			if out == nil {
				continue
			}
			select {
			case a.Outbox <- *out:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Handle decides on one post. A nil Outgoing means no reply.
func (a *Agent) Handle(ctx context.Context, post types.Post) (*Outgoing, error) {
	a.count(func(s *Stats) { s.Received++ })
	log := a.log.WithFields(logging.Fields{"post": post.ID, "author": post.AuthorID})

	if post.ID != "" && a.state.HasReplied(post.ID) {
		a.count(func(s *Stats) { s.Duplicate++ })
		log.Debug("already replied")
		return nil, nil
	}
	if last, ok := a.state.LastReplyTo(post.AuthorID); ok && a.cooldown > 0 && time.Since(last) < a.cooldown {
		a.count(func(s *Stats) { s.Skipped++ })
		log.Debug("author cooling down")
		return nil, nil
	}

	d, err := a.composer.Decide(ctx, post, compose.Options{NoPrefix: a.noPrefix})
	if err != nil {
		a.count(func(s *Stats) { s.Errors++ })
		return nil, err
	}

	a.mu.RLock()
	recorder, replies := a.recorder, a.replies
	a.mu.RUnlock()
	if recorder != nil {
		if err := recorder.RecordDecision(ctx, post, d); err != nil {
			log.WithError(err).Warn("audit record failed")
		}
	}
	if d.Response == nil {
		a.count(func(s *Stats) { s.Skipped++ })
		log.WithField("outcome", d.Outcome).Debug("no reply")
		return nil, nil
	}

	// Another handler may have answered the post or author meanwhile.
	now := time.Now()
	if !a.state.Claim(post.ID, post.AuthorID, a.cooldown, now) {
		a.count(func(s *Stats) { s.Duplicate++ })
		log.Debug("claimed by another handler")
		return nil, nil
	}

	// A reply the watchdog cannot see must not go out.
	if replies != nil {
		if err := replies.Candidate(d.Response.Text); err != nil {
			a.state.Release(post.ID, post.AuthorID, now)
			a.count(func(s *Stats) { s.Errors++ })
			return nil, fmt.Errorf("log reply candidate: %w", err)
		}
	}

	a.count(func(s *Stats) { s.Replied++ })
	log.WithField("source", d.Response.Meta.Source).Info("reply ready")
	return &Outgoing{
		ID:        uuid.NewString(),
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Text:      d.Response.Text,
		Meta:      d.Response.Meta,
		CreatedAt: now,
	}, nil
}

func (a *Agent) count(fn func(*Stats)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.stats)
}

// ErrStopped is returned by Submit after the agent stopped.
var ErrStopped = errors.New("agent stopped")

// Submit queues a post, waiting for inbox space.
func (a *Agent) Submit(ctx context.Context, post types.Post) error {
	done := a.Done()
	if done == nil {
		return ErrStopped
	}
	select {
	case <-done:
		return ErrStopped
	default:
	}
	select {
	case a.Inbox <- post:
		return nil
	case <-done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

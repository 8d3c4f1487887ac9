package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cpunion/reply-bot/pkg/compose"
	"github.com/cpunion/reply-bot/pkg/types"
)

type fakeComposer struct {
	mu    sync.Mutex
	calls int
	reply func(types.Post) (compose.Decision, error)
}

func (f *fakeComposer) Decide(_ context.Context, post types.Post, _ compose.Options) (compose.Decision, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.reply(post)
}

func echo(post types.Post) (compose.Decision, error) {
	if post.Text == "" {
		return compose.Decision{Outcome: compose.OutcomeEmpty}, nil
	}
	return compose.Decision{
		Outcome:  compose.OutcomeReplied,
		Response: &types.Response{Text: "re: " + post.Text, Meta: types.ResponseMeta{Mode: types.ModeStrategy, Source: "fallback"}},
	}, nil
}

type memLog struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (m *memLog) Candidate(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.lines = append(m.lines, text)
	return nil
}

type memRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (m *memRecorder) RecordDecision(_ context.Context, _ types.Post, d compose.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, d.Outcome)
	return nil
}

func newAgent(t *testing.T, c Composer) *Agent {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataPath = t.TempDir()
	a, err := New(cfg, c, nil)
	require.NoError(t, err)
	return a
}

func TestHandle(t *testing.T) {
	c := &fakeComposer{reply: echo}
	a := newAgent(t, c)
	replies, audit := &memLog{}, &memRecorder{}
	a.SetReplyLog(replies)
	a.SetRecorder(audit)
	ctx := context.Background()

	out, err := a.Handle(ctx, types.Post{ID: "1", AuthorID: "alice", Text: "nice pull"})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "re: nice pull", out.Text)
	assert.Equal(t, "1", out.PostID)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, []string{"re: nice pull"}, replies.lines)

	out, err = a.Handle(ctx, types.Post{ID: "1", AuthorID: "alice", Text: "nice pull"})
	require.NoError(t, err)
	assert.Nil(t, out, "same post twice")

	out, err = a.Handle(ctx, types.Post{ID: "2", AuthorID: "alice", Text: "another"})
	require.NoError(t, err)
	assert.Nil(t, out, "author cooldown")

	out, err = a.Handle(ctx, types.Post{ID: "3", AuthorID: "bob", Text: ""})
	require.NoError(t, err)
	assert.Nil(t, out)

	assert.Equal(t, 2, c.calls)
	assert.Equal(t, []string{compose.OutcomeReplied, compose.OutcomeEmpty}, audit.outcomes)
	assert.Equal(t, Stats{Received: 4, Replied: 1, Skipped: 2, Duplicate: 1}, a.Stats())
}

func TestHandle_ReplyLogFailureWithholdsReply(t *testing.T) {
	a := newAgent(t, &fakeComposer{reply: echo})
	a.SetReplyLog(&memLog{err: errors.New("disk full")})

	out, err := a.Handle(context.Background(), types.Post{ID: "1", Text: "hello"})
	assert.ErrorContains(t, err, "disk full")
	assert.Nil(t, out)
	assert.False(t, a.State().HasReplied("1"))
}

func TestHandle_ConcurrentSamePostRepliesOnce(t *testing.T) {
	a := newAgent(t, &fakeComposer{reply: echo})
	replies := &memLog{}
	a.SetReplyLog(replies)

	const handlers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	start := make(chan struct{})
	for i := 0; i < handlers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			out, err := a.Handle(context.Background(), types.Post{ID: "7", AuthorID: "ash", Text: "pulled a moonbreon"})
			assert.NoError(t, err)
			if out != nil {
				mu.Lock()
				sent++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, sent)
	assert.Len(t, replies.lines, 1)
	st := a.Stats()
	assert.Equal(t, 1, st.Replied)
	assert.Equal(t, handlers-1, st.Duplicate+st.Skipped)
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	a := newAgent(t, &fakeComposer{reply: echo})
	ctx := context.Background()

	require.NoError(t, a.Start(ctx))
	assert.Error(t, a.Start(ctx))

	require.NoError(t, a.Submit(ctx, types.Post{ID: "1", AuthorID: "alice", Text: "mail day"}))
	require.NoError(t, a.Submit(ctx, types.Post{ID: "2", AuthorID: "bob", Text: ""}))
	require.NoError(t, a.Submit(ctx, types.Post{ID: "3", AuthorID: "carol", Text: "restock"}))

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case out := <-a.Outbox:
			got = append(got, out.Text)
		case <-timeout:
			t.Fatal("timed out waiting for replies")
		}
	}
	assert.Equal(t, []string{"re: mail day", "re: restock"}, got)

	require.NoError(t, a.Stop())
	assert.Error(t, a.Stop())
	assert.ErrorIs(t, a.Submit(ctx, types.Post{ID: "4"}), ErrStopped)

	reloaded, err := LoadState(a.State().dataPath)
	require.NoError(t, err)
	assert.True(t, reloaded.HasReplied("3"))
}

func TestParentCancelStopsLoop(t *testing.T) {
	defer goleak.VerifyNone(t)
	block := make(chan struct{})
	c := &fakeComposer{reply: func(types.Post) (compose.Decision, error) {
		<-block
		return compose.Decision{}, context.Canceled
	}}
	a := newAgent(t, c)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Start(ctx))
	require.NoError(t, a.Submit(ctx, types.Post{ID: "1", Text: "x"}))

	cancel()
	close(block)
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit")
	}
	require.NoError(t, a.Stop())
}

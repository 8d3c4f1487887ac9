package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RecordReply(t *testing.T) {
	state := NewState("")
	at := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)

	state.RecordReply("post-1", "alice", at)
	state.RecordReply("post-2", "alice", at.Add(time.Minute))

	assert.True(t, state.HasReplied("post-1"))
	assert.False(t, state.HasReplied("post-3"))
	last, ok := state.LastReplyTo("alice")
	require.True(t, ok)
	assert.Equal(t, at.Add(time.Minute), last)
	assert.Equal(t, 2, state.Authors["alice"].Replies)

	_, ok = state.LastReplyTo("")
	assert.False(t, ok)
}

func TestState_Claim(t *testing.T) {
	state := NewState("")
	at := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)

	require.True(t, state.Claim("post-1", "alice", time.Hour, at))
	assert.False(t, state.Claim("post-1", "bob", time.Hour, at), "post already claimed")
	assert.False(t, state.Claim("post-2", "alice", time.Hour, at.Add(time.Minute)), "author cooling down")
	assert.True(t, state.Claim("post-3", "alice", time.Hour, at.Add(2*time.Hour)))
	assert.Equal(t, 2, state.Authors["alice"].Replies)

	// Releasing the latest claim restores the earlier reply.
	state.Release("post-3", "alice", at.Add(2*time.Hour))
	assert.False(t, state.HasReplied("post-3"))
	last, ok := state.LastReplyTo("alice")
	require.True(t, ok)
	assert.Equal(t, at, last)
	assert.Equal(t, 1, state.Authors["alice"].Replies)

	state.Release("post-1", "alice", at)
	assert.False(t, state.HasReplied("post-1"))
	_, ok = state.LastReplyTo("alice")
	assert.False(t, ok)
}

func TestState_Prune(t *testing.T) {
	state := NewState("")
	now := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)
	state.RecordReply("old", "bob", now.Add(-48*time.Hour))
	state.RecordReply("new", "carol", now.Add(-time.Hour))

	assert.Equal(t, 1, state.Prune(now, 24*time.Hour))
	assert.False(t, state.HasReplied("old"))
	assert.True(t, state.HasReplied("new"))
	_, ok := state.LastReplyTo("bob")
	assert.False(t, ok)
}

func TestState_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	state := NewState(dir)
	at := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)
	state.RecordReply("post-1", "alice", at)
	require.NoError(t, state.Save())

	_, err := os.Stat(filepath.Join(dir, "state.json"))
	require.NoError(t, err)

	loaded, err := LoadState(dir)
	require.NoError(t, err)
	assert.True(t, loaded.HasReplied("post-1"))
	last, ok := loaded.LastReplyTo("alice")
	require.True(t, ok)
	assert.True(t, at.Equal(last))
}

func TestLoadState_Missing(t *testing.T) {
	state, err := LoadState(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, state.Replied)

	require.NoError(t, NewState("").Save())
}

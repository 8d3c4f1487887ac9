package replylog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(w *Writer) {
	w.now = func() time.Time { return time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC) }
}

func TestWriter_Lines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	fixedClock(w)

	require.NoError(t, w.Candidate(`Clean copy, "gem" worthy`))
	require.NoError(t, w.Anomaly(KindTypingInterrupted, "focus lost\nafter 12 chars"))
	assert.Error(t, w.Anomaly(KindCandidate, "nope"))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `2025-03-04T18:30:00Z REPLY_CANDIDATE "Clean copy, \"gem\" worthy"`, lines[0])
	assert.Equal(t, `2025-03-04T18:30:00Z TYPING_INTERRUPTED focus lost after 12 chars`, lines[1])
}

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	fixedClock(w)
	text := "Line one\nline two with a tab\tand unicode é"
	require.NoError(t, w.Candidate(text))

	e, ok := ParseLine(buf.String())
	require.True(t, ok)
	assert.Equal(t, KindCandidate, e.Kind)
	assert.Equal(t, text, e.Text)
	assert.Equal(t, 2025, e.Time.Year())
}

func TestOpen_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "replies.log")
	for i := 0; i < 2; i++ {
		w, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, w.Candidate("hi"))
		require.NoError(t, w.Close())
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "REPLY_CANDIDATE"))
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Entry
		ok   bool
	}{
		{line: "2025-03-04T18:30:00Z INFO starting browser", ok: false},
		{line: `[bot] REPLY_CANDIDATE "Nice pull"`, want: Entry{Kind: KindCandidate, Text: "Nice pull"}, ok: true},
		{line: `REPLY_CANDIDATE "broken quote`, want: Entry{Kind: KindCandidate, Text: "broken quote"}, ok: true},
		{line: `INTERACTION_ANOMALY clicked the wrong post`, want: Entry{Kind: KindInteractionAnomaly, Detail: "clicked the wrong post"}, ok: true},
		{line: `TYPING_MISMATCH`, want: Entry{Kind: KindTypingMismatch}, ok: true},
	}
	for _, tt := range tests {
		got, ok := ParseLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestNilWriter(t *testing.T) {
	var w *Writer
	assert.NoError(t, w.Candidate("x"))
	assert.NoError(t, w.Close())
}

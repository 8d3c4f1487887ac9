package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpunion/reply-bot/pkg/agent"
	"github.com/cpunion/reply-bot/pkg/outbox"
	"github.com/cpunion/reply-bot/pkg/replylog"
	"github.com/cpunion/reply-bot/pkg/types"
)

func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "logging:\n  level: error\nbackends: []\naudit:\n  db_path: " + filepath.Join(dir, "audit.db") + "\n"
	path := filepath.Join(dir, "replybot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	for _, key := range []string{"REPLYBOT_CONFIG", "AUDIT_DB_PATH", "PRICE_API_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPostFlags(t *testing.T) {
	dir := t.TempDir()
	threadPath := filepath.Join(dir, "thread.json")
	require.NoError(t, os.WriteFile(threadPath, []byte(`{"full_conversation":[
		{"username":"misty","text":"which set is this from"},
		{"username":"brock","text":"evolving skies I think"}]}`), 0644))

	pf := postFlags{author: "@ash", images: []string{"https://img.example/1.jpg"}, threadPath: threadPath}
	post, err := pf.post([]string{"pulled", "a", "moonbreon"})
	require.NoError(t, err)
	assert.Equal(t, "pulled a moonbreon", post.Text)
	assert.Equal(t, "@ash", post.AuthorID)
	assert.True(t, post.HasImages)
	require.NotNil(t, post.Thread)
	assert.Equal(t, 2, post.Thread.ThreadLength)

	_, err = (&postFlags{}).post(nil)
	assert.Error(t, err)
}

func TestPostFlags_HTML(t *testing.T) {
	page := filepath.Join(t.TempDir(), "status.html")
	require.NoError(t, os.WriteFile(page, []byte(`<html><body>
<article data-testid="tweet">
  <div data-testid="User-Name"><span>Ash</span><span>@ash</span></div>
  <a href="/ash/status/42">now</a>
  <div data-testid="tweetText">Finally graded my base set Blastoise</div>
</article></body></html>`), 0644))

	post, err := (&postFlags{htmlPath: page}).post(nil)
	require.NoError(t, err)
	assert.Equal(t, "Finally graded my base set Blastoise", post.Text)
	assert.Equal(t, "42", post.ID)
}

func TestClassifyCommand(t *testing.T) {
	cfg := setupConfig(t)
	out, err := execute(t, "--config", cfg, "classify", "how much is this charizard worth")
	require.NoError(t, err)
	assert.Contains(t, out, "intents")
}

func TestEventCommand(t *testing.T) {
	cfg := setupConfig(t)
	out, err := execute(t, "--config", cfg, "event", "Pokemon league this Saturday at 2pm, $5 entry at the card shop")
	require.NoError(t, err)
	assert.Contains(t, out, "signals")
}

func TestComposeAndAudit(t *testing.T) {
	cfg := setupConfig(t)

	out, err := execute(t, "--config", cfg, "compose", "--json", "--audit", "--author", "@ash", "--id", "7",
		"just pulled my first gold star, what a day")
	require.NoError(t, err)
	var resp *types.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	if resp != nil {
		assert.LessOrEqual(t, len([]rune(resp.Text)), types.CharLimit)
	}

	out, err = execute(t, "--config", cfg, "audit", "--author", "@ash")
	require.NoError(t, err)
	assert.Contains(t, out, "totals")
	assert.False(t, strings.Contains(out, "none recorded"))
}

func TestAuditCommand_NoDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "replybot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backends: []\n"), 0644))
	for _, key := range []string{"REPLYBOT_CONFIG", "AUDIT_DB_PATH"} {
		t.Setenv(key, "")
	}
	_, err := execute(t, "--config", path, "audit")
	assert.ErrorContains(t, err, "no audit database")
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "replybot.yaml")
	logPath := filepath.Join(dir, "replies.log")
	cfg := "logging:\n  level: error\nbackends: []\nwatchdog:\n  log_path: " + logPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	for _, key := range []string{"REPLYBOT_CONFIG", "AUDIT_DB_PATH", "PRICE_API_URL", "REPLY_LOG_PATH", "METRICS_ADDR"} {
		t.Setenv(key, "")
	}

	posts := `{"id":"1","text":"Just pulled a Charizard ex from my first booster box!","author_id":"ash"}
{"id":"1","text":"Just pulled a Charizard ex from my first booster box!","author_id":"ash"}
{"id":"2","text":"Anyone know if psa or cgc is better for modern cards?","author_id":"misty"}
`
	input := filepath.Join(dir, "posts.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(posts), 0644))
	outboxDir := filepath.Join(dir, "outbox")

	out, err := execute(t, "--config", cfgPath, "run", "--input", input, "--outbox", outboxDir)
	require.NoError(t, err)

	seen := map[string]bool{}
	var replies int
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var o agent.Outgoing
		require.NoError(t, json.Unmarshal([]byte(line), &o))
		assert.False(t, seen[o.PostID], "post %s answered twice", o.PostID)
		seen[o.PostID] = true
		replies++
	}

	idx, err := outbox.LoadIndex(outboxDir)
	require.NoError(t, err)
	assert.Equal(t, replies, idx.Total)

	// Every reply was logged as a candidate before it went out.
	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	var candidates int
	for _, line := range strings.Split(string(raw), "\n") {
		if e, ok := replylog.ParseLine(line); ok && e.Kind == replylog.KindCandidate {
			candidates++
		}
	}
	assert.Equal(t, replies, candidates)
}

// Package llm provides the external generative backends consulted after the
// internal reply strategies come up empty, and the chain that cascades
// through them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cpunion/reply-bot/pkg/types"
)

var (
	// ErrExhausted means a backend crossed its failure threshold and is
	// skipped for the rest of the process lifetime.
	ErrExhausted = errors.New("backend exhausted")
	// ErrEmpty means a backend answered with no usable text.
	ErrEmpty = errors.New("backend returned empty text")
	// ErrNoReply means every backend was skipped or failed.
	ErrNoReply = errors.New("no backend produced a reply")
)

// Backend generates reply text from a prompt.
type Backend interface {
	Name() string
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Prompt is a system instruction plus the per-post request.
type Prompt struct {
	System string
	User   string
}

// SystemPrompt carries the reply rules every backend is given.
const SystemPrompt = `You are a friendly, knowledgeable trading card collector replying to posts on a social network.

## Reply rules
- One or two short sentences, at most 240 characters.
- No hashtags, no @mentions, no emojis.
- Never say you liked, retweeted or followed anything.
- Never open with "great post", "thanks for sharing" or similar filler.
- At most one exclamation mark.
- If you have nothing useful to add, reply with an empty message.`

// PromptInput is what BuildPrompt draws on.
type PromptInput struct {
	Post           types.Post
	Classification types.ClassificationResult
	Snippet        string
	EventMode      bool
}

// BuildPrompt renders the user part of the prompt for one post.
func BuildPrompt(in PromptInput) Prompt {
	var sb strings.Builder
	sb.WriteString("## Post\n")
	sb.WriteString(strings.TrimSpace(in.Post.Text))
	sb.WriteString("\n")

	if len(in.Classification.RankedIntents) > 0 {
		sb.WriteString("\n## Detected topics\n")
		for _, s := range in.Classification.RankedIntents {
			sb.WriteString(fmt.Sprintf("- %s (%.2f)\n", s.Name, s.Score))
		}
	}
	if in.Snippet != "" {
		sb.WriteString("\n## Conversation so far\n")
		sb.WriteString(in.Snippet)
		sb.WriteString("\n")
	}
	if in.Post.HasImages {
		sb.WriteString("\nThe post includes images you cannot see; do not describe them.\n")
	}
	if in.EventMode {
		sb.WriteString("\nThis post announces an event. Keep the reply social and do not mention prices, fees, percentages or numbers.\n")
	}
	sb.WriteString("\n## Task\nWrite the reply text only.")
	return Prompt{System: SystemPrompt, User: sb.String()}
}

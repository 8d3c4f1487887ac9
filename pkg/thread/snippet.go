// Package thread summarizes the recent turns of a conversation into a short
// snippet used as reply context.
package thread

import (
	"fmt"
	"strings"

	"github.com/cpunion/reply-bot/pkg/types"
)

const (
	// MaxTurns is how many prior turns a snippet renders.
	MaxTurns = 3
	// TurnChars is the rune budget per rendered turn.
	TurnChars = 60
	// Separator joins rendered turns.
	Separator = " • "
	// minPrior is the fewest prior turns worth summarizing.
	minPrior = 2
)

// BuildSnippet renders up to three turns preceding the current one. It
// returns "" when there is no thread or fewer than two prior turns.
func BuildSnippet(tc *types.ThreadContext) string {
	if tc == nil {
		return ""
	}
	conv := tc.FullConversation
	prior := len(conv) - 1
	if prior < minPrior {
		return ""
	}

	start := prior - MaxTurns
	if start < 0 {
		start = 0
	}
	parts := make([]string, 0, MaxTurns)
	for _, turn := range conv[start:prior] {
		parts = append(parts, fmt.Sprintf("@%s: %q", username(turn.Username), clip(turn.Text, TurnChars)))
	}

	length := tc.ThreadLength
	if length <= 0 {
		length = len(conv)
	}
	return fmt.Sprintf("Thread (%d earlier): %s", length-1, strings.Join(parts, Separator))
}

// Depth is the number of turns before the current one.
func Depth(tc *types.ThreadContext) int {
	if tc == nil {
		return 0
	}
	length := tc.ThreadLength
	if length <= 0 {
		length = len(tc.FullConversation)
	}
	if length <= 1 {
		return 0
	}
	return length - 1
}

func username(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return "unknown"
	}
	return name
}

func clip(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// Package generate holds the template-based reply generators that run before
// any external model is consulted. An empty result means "nothing useful".
package generate

import (
	"hash/fnv"
	"strings"

	"github.com/cpunion/reply-bot/pkg/types"
)

// pick chooses a template deterministically from the post text.
func pick(text string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(text))))
	return options[h.Sum32()%uint32(len(options))]
}

var eventReplies = []string{
	"Love seeing local events like this. Hope the turnout is great.",
	"This is how the community grows. Good luck to everyone playing.",
	"Nothing beats game night with the locals. Have fun out there.",
	"Events like this keep the hobby fun. Hope it fills up.",
	"Always good to see players getting together. Enjoy the games.",
}

// EventReply returns a social, number-free reply for event posts.
func EventReply(text string) string {
	return pick(text, eventReplies)
}

// Context is what the human-like generator may draw on.
type Context struct {
	Snippet   string
	Intents   []string
	Sentiment types.Sentiment
}

// HumanLike writes casual collector-voice replies.
type HumanLike struct{}

var (
	threadReplies = []string{
		"Following this thread, and the back and forth here is spot on.",
		"Been reading along and this take lines up with what I keep seeing.",
		"This thread went somewhere good. Agree with where it landed.",
	}
	hypeReplies = []string{
		"That is a serious pull. Enjoy it.",
		"Clean copy. That one deserves a top loader right away.",
		"Huge hit. Those never get old.",
		"What a card. Congrats on landing it.",
	}
	casualReplies = []string{
		"Fair point, the hobby moves fast lately.",
		"Been seeing the same thing around here.",
		"Honestly curious how this one plays out.",
	}
)

// Generate returns a reply or "".
func (HumanLike) Generate(text string, ctx Context) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	switch {
	case ctx.Snippet != "":
		return pick(text, threadReplies)
	case ctx.Sentiment == types.SentimentPositive:
		return pick(text, hypeReplies)
	default:
		return pick(text, casualReplies)
	}
}

// ContextFallback answers from the primary intent alone.
type ContextFallback struct{}

var intentReplies = map[string][]string{
	"retail":         {"Retail has been a coin flip lately. Early is the only strategy that works.", "Limits help, but restock days are still chaos."},
	"price":          {"Prices on this one swing a lot. Worth watching sold listings before buying.", "Raw and graded prices tell different stories on this one."},
	"grading":        {"Grading is such a gamble on modern. Centering makes or breaks it.", "Curious what grade this comes back at."},
	"pack_opening":   {"Nothing like the rush of opening packs.", "Rips like this are why people keep buying packs."},
	"pull_rates":     {"Pull rates on this set have been brutal.", "The odds on this set keep people humble."},
	"vintage_modern": {"Vintage and modern scratch completely different itches.", "The vintage versus modern debate never ends."},
}

var genericReplies = []string{
	"Solid take on this.",
	"Makes sense from what I have seen.",
	"Interesting angle on the hobby.",
}

// minFallbackLen is the shortest intent-free text the fallback answers.
const minFallbackLen = 12

// Generate returns a reply keyed on the first known intent, or "".
func (ContextFallback) Generate(text string, intents []string) string {
	for _, name := range intents {
		if opts, ok := intentReplies[name]; ok {
			return pick(text, opts)
		}
	}
	if len(strings.TrimSpace(text)) < minFallbackLen {
		return ""
	}
	return pick(text, genericReplies)
}

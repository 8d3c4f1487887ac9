// Package persona applies the agent's voice to composed reply text.
package persona

import (
	"strings"
)

const (
	// DefaultLeadIn is prepended to price and retail replies.
	DefaultLeadIn = "Quick take:"
	// DefaultFallback replaces empty or placeholder text.
	DefaultFallback = "Appreciate you putting this out there."
)

var placeholders = map[string]bool{
	"":                true,
	"null":            true,
	"undefined":       true,
	"none":            true,
	"nil":             true,
	"n/a":             true,
	"nan":             true,
	"[object object]": true,
}

// leadInIntents get the lead-in phrase when they rank first.
var leadInIntents = map[string]bool{"price": true, "retail": true}

// Options controls framing for one reply.
type Options struct {
	Confidence float64
	Intents    []string
	NoPrefix   bool
}

// Styler normalizes voice and framing.
type Styler struct {
	LeadIn   string
	Fallback string
}

// NewStyler creates a styler. Empty arguments take the defaults.
func NewStyler(leadIn, fallback string) *Styler {
	if leadIn == "" {
		leadIn = DefaultLeadIn
	}
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Styler{LeadIn: leadIn, Fallback: fallback}
}

// Style collapses whitespace, swaps placeholder input for the fallback
// sentence and adds the lead-in for price or retail replies.
func (s *Styler) Style(text string, opts Options) string {
	text = strings.Join(strings.Fields(text), " ")
	if IsPlaceholder(text) {
		return s.Fallback
	}
	if opts.NoPrefix || len(opts.Intents) == 0 || !leadInIntents[opts.Intents[0]] {
		return text
	}
	if strings.HasPrefix(strings.ToLower(text), strings.ToLower(s.LeadIn)) {
		return text
	}
	return s.LeadIn + " " + text
}

// IsPlaceholder reports whether text carries no real content.
func IsPlaceholder(text string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(text))]
}

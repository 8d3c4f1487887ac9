// Package intent scores post text against a lexicon of named intents.
package intent

import (
	"math"
	"sort"
	"strings"

	"github.com/cpunion/reply-bot/pkg/types"
)

const (
	// MinScore is the cutoff; intents at or below it are discarded.
	MinScore = 0.8

	anyCredit    = 0.6
	anyCreditCap = 2.0
	prefixLen    = 5
)

// Spec describes one intent. Every Must group needs at least one matching
// term; each matching Any term adds partial credit.
type Spec struct {
	Name   string
	Weight float64
	Must   [][]string
	Any    []string
}

// Lexicon is an ordered list of intents. Order breaks score ties.
type Lexicon []Spec

// Classifier scores text against a lexicon. It holds no mutable state.
type Classifier struct {
	lexicon Lexicon
}

// New creates a classifier for the given lexicon.
func New(lex Lexicon) *Classifier {
	return &Classifier{lexicon: lex}
}

// NewDefault creates a classifier with the built-in trading card lexicon.
func NewDefault() *Classifier {
	return New(Default())
}

// Default returns the built-in lexicon.
func Default() Lexicon {
	return Lexicon{
		{
			Name:   "retail",
			Weight: 1.0,
			Must:   [][]string{{"target", "walmart", "costco", "best buy", "gamestop", "pokemon center", "restock", "retail", "msrp", "store"}},
			Any:    []string{"limit", "lining up", "members", "shelves", "in stock", "sold out", "preorder", "today", "vendor", "scalper"},
		},
		{
			Name:   "price",
			Weight: 1.1,
			Must:   [][]string{{"price", "worth", "value", "cost", "paying", "paid", "sell", "sold", "market", "comps", "usd", "dollar"}},
			Any:    []string{"how much", "going for", "spike", "trend", "ebay", "tcgplayer", "listing", "undervalued", "overpriced"},
		},
		{
			Name:   "grading",
			Weight: 1.0,
			Must:   [][]string{{"psa", "bgs", "cgc", "graded", "grading", "slab", "pop report", "subgrade"}},
			Any:    []string{"gem mint", "centering", "surface", "corners", "edges", "submission", "turnaround", "black label"},
		},
		{
			Name:   "pack_opening",
			Weight: 0.9,
			Must:   [][]string{{"pack", "booster", "etb", "elite trainer", "opening", "ripped", "ripping"}},
			Any:    []string{"pulled", "mail day", "finally", "god pack", "chase", "hit"},
		},
		{
			Name:   "pull_rates",
			Weight: 1.0,
			Must:   [][]string{{"pull rate", "odds", "per box", "per case", "hit rate"}},
			Any:    []string{"special illustration", "alt art", "secret rare", "illustration rare", "chase", "boxes"},
		},
		{
			Name:   "vintage_modern",
			Weight: 0.9,
			Must:   [][]string{{"vintage", "wotc", "base set", "first edition", "1st edition", "shadowless", "modern"}},
			Any:    []string{"nostalgia", "investment", "long term", "print run", "reprint", "classic"},
		},
	}
}

// Classify scores text. Equal inputs always give equal results.
func (c *Classifier) Classify(text string) types.ClassificationResult {
	norm := Normalize(text)
	res := types.ClassificationResult{RankedIntents: []types.IntentScore{}}
	if norm == "" {
		return res
	}
	tokens := strings.Fields(norm)

	for _, spec := range c.lexicon {
		score := spec.score(norm, tokens)
		if score > MinScore {
			res.RankedIntents = append(res.RankedIntents, types.IntentScore{Name: spec.Name, Score: score})
		}
	}
	sort.SliceStable(res.RankedIntents, func(i, j int) bool {
		return res.RankedIntents[i].Score > res.RankedIntents[j].Score
	})
	if len(res.RankedIntents) > 0 {
		top := res.RankedIntents[0]
		res.PrimaryIntent = top.Name
		res.Confidence = math.Min(1, top.Score/3)
	}
	return res
}

func (s Spec) score(norm string, tokens []string) float64 {
	gate := 0.0
	if len(s.Must) > 0 {
		for _, group := range s.Must {
			if !matchAny(norm, tokens, group) {
				return 0
			}
		}
		gate = 1
	}
	hits := 0
	for _, term := range s.Any {
		if Match(norm, tokens, term) {
			hits++
		}
	}
	credit := math.Min(anyCreditCap, anyCredit*float64(hits))
	return s.Weight * (gate + credit)
}

func matchAny(norm string, tokens []string, group []string) bool {
	for _, term := range group {
		if Match(norm, tokens, term) {
			return true
		}
	}
	return false
}

// Match reports whether term occurs in the normalized text, either as a
// substring or, for single-word terms of five or more characters, as a token
// sharing the term's first five characters.
func Match(norm string, tokens []string, term string) bool {
	term = Normalize(term)
	if term == "" {
		return false
	}
	if strings.Contains(norm, term) {
		return true
	}
	if len(term) < prefixLen || strings.Contains(term, " ") {
		return false
	}
	prefix := term[:prefixLen]
	for _, tok := range tokens {
		if len(tok) >= prefixLen && tok[:prefixLen] == prefix {
			return true
		}
	}
	return false
}

// Normalize lower-cases text and replaces every run of characters outside
// [a-z0-9] with a single space.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := true
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

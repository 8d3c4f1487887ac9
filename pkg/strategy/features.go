// Package strategy turns a classified post into features and picks exactly
// one reply strategy from them.
package strategy

import (
	"math"
	"regexp"
	"strings"

	"github.com/cpunion/reply-bot/pkg/intent"
	"github.com/cpunion/reply-bot/pkg/thread"
	"github.com/cpunion/reply-bot/pkg/types"
)

// Entities is the card and product vocabulary recognized in posts.
var Entities = []string{
	"moonbreon", "umbreon vmax", "umbreon", "charizard", "pikachu illustrator", "pikachu",
	"lugia", "rayquaza", "mewtwo", "mew", "gengar", "eevee", "giratina", "blastoise", "venusaur",
	"base set", "evolving skies", "crown zenith", "151", "prismatic evolutions", "hidden fates",
	"surging sparks", "shrouded fable", "paldean fates", "booster box", "etb", "elite trainer box",
}

var (
	setCodeRe     = regexp.MustCompile(`\b(swsh|sv|sm|xy)\s?\d{1,3}[a-z]?\b|\b\d{1,3}/\d{2,3}\b`)
	statsRe       = regexp.MustCompile(`[$€£]\s?\d|\d\s?%|\b\d+(\.\d+)?x\b|\b\d+\s?(sales|sold|pop)\b`)
	priceAskRe    = regexp.MustCompile(`\?|\b(how much|what.?s it worth|what is it worth|worth it|price check|pc\b|value on|going for)\b`)
	showingOffRes = []string{
		"pulled", "pull of", "hit", "mail day", "mailday", "finally got", "finally pulled",
		"look what", "look at this", "my collection", "grail", "just got", "came in", "added to the",
	}
)

// valueIntents feed the value score.
var valueIntents = []string{"price", "grading"}

// Input gathers what feature extraction looks at.
type Input struct {
	Post           types.Post
	Classification types.ClassificationResult
	Sentiment      types.SentimentResult
	Visual         *types.VisualFacts
}

// Extract builds the feature vector for one post.
func Extract(in Input) types.Features {
	lower := strings.ToLower(in.Post.Text)
	norm := intent.Normalize(in.Post.Text)

	f := types.Features{
		Text:          in.Post.Text,
		HasStats:      statsRe.MatchString(lower),
		HasImages:     in.Post.HasImages || len(in.Post.ImageRefs) > 0,
		Entities:      FindEntities(in.Post.Text),
		ThreadDepth:   thread.Depth(in.Post.Thread),
		Sentiment:     in.Sentiment.Sentiment,
		HasVisualData: !in.Visual.Empty(),
	}
	if f.Sentiment == "" {
		f.Sentiment = types.SentimentNeutral
	}

	hasPriceIntent := in.Classification.Score("price") > 0
	f.IsPriceQuestion = hasPriceIntent && priceAskRe.MatchString(lower)

	value := 0.0
	for _, name := range valueIntents {
		value += in.Classification.Score(name)
	}
	f.ValueScore = math.Min(1, value/3)

	padded := " " + norm + " "
	for _, phrase := range showingOffRes {
		if strings.Contains(padded, " "+phrase+" ") {
			f.IsShowingOff = true
			break
		}
	}
	return f
}

// FindEntities returns known entities and set codes in text order of the
// vocabulary. Longer names shadow the shorter names they contain.
func FindEntities(text string) []string {
	padded := " " + intent.Normalize(text) + " "
	out := []string{}
	var taken []string
	for _, e := range Entities {
		if !strings.Contains(padded, " "+e+" ") {
			continue
		}
		if shadowed(e, taken) {
			continue
		}
		out = append(out, e)
		taken = append(taken, e)
	}
	for _, code := range setCodeRe.FindAllString(strings.ToLower(text), -1) {
		out = append(out, code)
	}
	return out
}

func shadowed(e string, taken []string) bool {
	for _, t := range taken {
		if strings.Contains(" "+t+" ", " "+e+" ") {
			return true
		}
	}
	return false
}

package gate

import (
	"math"
	"strings"

	"github.com/cpunion/reply-bot/pkg/intent"
	"github.com/cpunion/reply-bot/pkg/types"
)

// LexiconSentiment is a word-list sentiment scorer.
type LexiconSentiment struct {
	Positive []string
	Negative []string
	// Sensitive topics are never engaged with.
	Sensitive []string
	// RefuseAbove is the negative confidence above which engagement stops.
	RefuseAbove float64
}

// NewLexiconSentiment returns a scorer with the built-in word lists.
func NewLexiconSentiment() *LexiconSentiment {
	return &LexiconSentiment{
		Positive: []string{
			"love", "great", "amazing", "awesome", "beautiful", "stoked", "hyped", "finally",
			"insane", "clean", "gorgeous", "happy", "excited", "lucky", "grail", "congrats", "fire",
		},
		Negative: []string{
			"hate", "awful", "terrible", "scam", "scammed", "ripped off", "angry", "worst",
			"disappointed", "broken", "damaged", "sad", "upset", "trash", "garbage", "fake",
		},
		Sensitive: []string{
			"passed away", "rest in peace", "funeral", "cancer", "suicide", "in memory of",
			"shooting", "tragedy", "condolences",
		},
		RefuseAbove: 0.6,
	}
}

var negations = map[string]bool{"not": true, "no": true, "never": true, "dont": true, "isnt": true, "wasnt": true, "aint": true}

// Evaluate scores positive against negative terms. A negation word flips the
// term that follows it.
func (s *LexiconSentiment) Evaluate(text string) types.SentimentResult {
	norm := intent.Normalize(strings.ReplaceAll(text, "'", ""))
	if norm == "" {
		return types.SentimentResult{Sentiment: types.SentimentNeutral, Reason: "empty text"}
	}
	for _, term := range s.Sensitive {
		if strings.Contains(norm, intent.Normalize(term)) {
			return types.SentimentResult{Sentiment: types.SentimentNegative, Confidence: 1, Reason: "sensitive topic: " + term}
		}
	}

	tokens := strings.Fields(norm)
	pos, neg := 0, 0
	count := func(terms []string, positive bool) {
		for _, term := range terms {
			t := intent.Normalize(term)
			idx := strings.Index(" "+norm+" ", " "+t+" ")
			if idx < 0 {
				continue
			}
			flipped := negatedAt(tokens, idx)
			if positive != flipped {
				pos++
			} else {
				neg++
			}
		}
	}
	count(s.Positive, true)
	count(s.Negative, false)

	total := pos + neg
	switch {
	case total == 0 || pos == neg:
		return types.SentimentResult{Sentiment: types.SentimentNeutral, Confidence: 0.5, Reason: "no dominant polarity"}
	case pos > neg:
		return types.SentimentResult{Sentiment: types.SentimentPositive, Confidence: ratio(pos, total), Reason: "positive vocabulary"}
	default:
		return types.SentimentResult{Sentiment: types.SentimentNegative, Confidence: ratio(neg, total), Reason: "negative vocabulary"}
	}
}

// negatedAt reports whether the token before byte offset idx is a negation.
func negatedAt(tokens []string, idx int) bool {
	offset := 0
	for i, tok := range tokens {
		if offset >= idx {
			return i > 0 && negations[tokens[i-1]]
		}
		offset += len(tok) + 1
	}
	return false
}

func ratio(n, total int) float64 {
	return math.Round(float64(n)/float64(total)*100) / 100
}

// ShouldEngage refuses strongly negative posts.
func (s *LexiconSentiment) ShouldEngage(res types.SentimentResult) types.EngageDecision {
	if res.Sentiment == types.SentimentNegative && res.Confidence > s.RefuseAbove {
		return types.EngageDecision{Engage: false, Reason: res.Reason}
	}
	return types.EngageDecision{Engage: true, Reason: "ok"}
}

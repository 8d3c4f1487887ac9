package strategy

import (
	"fmt"
	"math"

	"github.com/cpunion/reply-bot/pkg/types"
)

// Fixed branch confidences.
const (
	priceBase      = 0.8
	priceValueStep = 0.1
	visualConf     = 0.85
	authorityConf  = 0.8
	threadConf     = 0.7
	humanConf      = 0.65
	fallbackConf   = 0.4
)

// ExpertFunc reports whether text is expert-level domain commentary.
type ExpertFunc func(text string) bool

// Picker chooses a strategy by ordered rule match. The first rule that
// matches wins.
type Picker struct {
	expert ExpertFunc
}

// NewPicker creates a picker. A nil expert check never matches.
func NewPicker(expert ExpertFunc) *Picker {
	return &Picker{expert: expert}
}

// Pick returns the decision for a feature vector.
func (p *Picker) Pick(f types.Features) types.StrategyDecision {
	switch {
	case f.IsPriceQuestion && len(f.Entities) > 0:
		return types.StrategyDecision{
			Strategy:   types.StrategyPrice,
			Confidence: round2(priceBase + priceValueStep*f.ValueScore),
			Reason:     fmt.Sprintf("price question about %v", f.Entities),
		}
	case f.HasVisualData:
		return types.StrategyDecision{Strategy: types.StrategyVisual, Confidence: visualConf, Reason: "visual facts available"}
	case p.expert != nil && p.expert(f.Text):
		return types.StrategyDecision{Strategy: types.StrategyAuthority, Confidence: authorityConf, Reason: "expert-level commentary"}
	case f.ThreadDepth > 0:
		return types.StrategyDecision{
			Strategy:   types.StrategyThreadAware,
			Confidence: threadConf,
			Reason:     fmt.Sprintf("thread depth %d", f.ThreadDepth),
		}
	case f.IsShowingOff:
		return types.StrategyDecision{Strategy: types.StrategyHumanLike, Confidence: humanConf, Reason: "showing off"}
	case f.Sentiment == types.SentimentPositive:
		return types.StrategyDecision{Strategy: types.StrategyHumanLike, Confidence: humanConf, Reason: "positive sentiment"}
	default:
		return types.StrategyDecision{Strategy: types.StrategyFallback, Confidence: fallbackConf, Reason: "no stronger signal"}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

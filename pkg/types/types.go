// Package types defines core types for the reply decision engine.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Post is one observed item the agent may answer.
type Post struct {
	ID        string         `json:"id,omitempty"`
	Text      string         `json:"text"`
	AuthorID  string         `json:"author_id"`
	HasImages bool           `json:"has_images"`
	ImageRefs []string       `json:"image_refs,omitempty"`
	Thread    *ThreadContext `json:"thread_context,omitempty"`
}

// ThreadTurn is one message of a conversation.
type ThreadTurn struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// ThreadContext is the conversation a post belongs to. The last turn is the
// post itself.
type ThreadContext struct {
	FullConversation []ThreadTurn `json:"full_conversation"`
	ThreadLength     int          `json:"thread_length"`
}

// IntentScore is one ranked intent.
type IntentScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ClassificationResult is the output of intent classification.
type ClassificationResult struct {
	RankedIntents []IntentScore `json:"ranked_intents"`
	PrimaryIntent string        `json:"primary_intent,omitempty"`
	Confidence    float64       `json:"confidence"`
}

// IntentNames returns the ranked intent names.
func (c ClassificationResult) IntentNames() []string {
	names := make([]string, 0, len(c.RankedIntents))
	for _, s := range c.RankedIntents {
		names = append(names, s.Name)
	}
	return names
}

// Score returns the score of the named intent, or 0.
func (c ClassificationResult) Score(name string) float64 {
	for _, s := range c.RankedIntents {
		if s.Name == name {
			return s.Score
		}
	}
	return 0
}

// EventReasons lists the signals the event detector evaluates.
type EventReasons struct {
	DayOfWeek  bool `json:"day_of_week"`
	TimeOfDay  bool `json:"time_of_day"`
	EntryFee   bool `json:"entry_fee"`
	Venue      bool `json:"venue"`
	Tournament bool `json:"tournament"`
}

// Count returns how many signals fired.
func (r EventReasons) Count() int {
	n := 0
	for _, b := range []bool{r.DayOfWeek, r.TimeOfDay, r.EntryFee, r.Venue, r.Tournament} {
		if b {
			n++
		}
	}
	return n
}

// EventVerdict is the output of event detection.
type EventVerdict struct {
	IsEvent bool         `json:"is_event"`
	Reasons EventReasons `json:"reasons"`
}

// Strategy is a reply generation approach.
type Strategy int

const (
	StrategyPrice Strategy = iota
	StrategyVisual
	StrategyAuthority
	StrategyThreadAware
	StrategyHumanLike
	StrategyFallback
)

var strategyNames = [...]string{
	StrategyPrice:       "price",
	StrategyVisual:      "visual",
	StrategyAuthority:   "authority",
	StrategyThreadAware: "thread_aware",
	StrategyHumanLike:   "human_like",
	StrategyFallback:    "fallback",
}

// Strategies lists every strategy in cascade order.
func Strategies() []Strategy {
	return []Strategy{StrategyPrice, StrategyVisual, StrategyAuthority, StrategyThreadAware, StrategyHumanLike, StrategyFallback}
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s >= 0 && int(s) < len(strategyNames)
}

// ParseStrategy converts a name back into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid strategy %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// StrategyDecision is the picker's single verdict for a post.
type StrategyDecision struct {
	Strategy   Strategy `json:"strategy"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}

// Sentiment is a coarse polarity label.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// SentimentResult is a sentiment gate evaluation.
type SentimentResult struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
}

// EngageDecision says whether the agent should engage at all.
type EngageDecision struct {
	Engage bool   `json:"engage"`
	Reason string `json:"reason"`
}

// ScamVerdict is the anti-scam gate output.
type ScamVerdict struct {
	Skip   bool   `json:"skip"`
	Reason string `json:"reason"`
}

// PriceFacts is what a price lookup knows about an entity.
type PriceFacts struct {
	Entity      string          `json:"entity"`
	MarketPrice decimal.Decimal `json:"market_price"`
	Change7d    decimal.Decimal `json:"change_7d"`
	Currency    string          `json:"currency"`
	Sales       int             `json:"sales"`
}

// VisualFacts is the structured output of image analysis.
type VisualFacts struct {
	Subject    string   `json:"subject"`
	CardName   string   `json:"card_name,omitempty"`
	Grader     string   `json:"grader,omitempty"`
	Grade      string   `json:"grade,omitempty"`
	Condition  string   `json:"condition,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// Empty reports whether the facts carry nothing usable.
func (v *VisualFacts) Empty() bool {
	return v == nil || (v.Subject == "" && v.CardName == "" && v.Grade == "" && v.Condition == "" && len(v.Highlights) == 0)
}

// Features is the vector the strategy picker consumes.
type Features struct {
	Text            string    `json:"text"`
	IsPriceQuestion bool      `json:"is_price_question"`
	HasStats        bool      `json:"has_stats"`
	HasImages       bool      `json:"has_images"`
	Entities        []string  `json:"entities"`
	ValueScore      float64   `json:"value_score"`
	ThreadDepth     int       `json:"thread_depth"`
	Sentiment       Sentiment `json:"sentiment"`
	IsShowingOff    bool      `json:"is_showing_off"`
	HasVisualData   bool      `json:"has_visual_data"`
}

// Mode is how a reply was produced.
type Mode string

const (
	ModeStrategy Mode = "strategy"
	ModeEvent    Mode = "event"
	ModeBackend  Mode = "backend"
)

// ResponseMeta describes a reply.
type ResponseMeta struct {
	Intents  []string `json:"intents"`
	Mode     Mode     `json:"mode"`
	Strategy string   `json:"strategy,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// Response is a composed reply. A nil *Response means do not reply.
type Response struct {
	Text string       `json:"text"`
	Meta ResponseMeta `json:"meta"`
}

// CharLimit is the platform's reply length limit.
const CharLimit = 280

// Package gate holds the early-exit checks run before any reply is composed:
// sentiment, anti-scam and raffle detection.
package gate

import (
	"github.com/cpunion/reply-bot/pkg/types"
)

// SentimentGate decides whether a post's mood allows engagement.
type SentimentGate interface {
	Evaluate(text string) types.SentimentResult
	ShouldEngage(res types.SentimentResult) types.EngageDecision
}

// AntiScamGate flags posts the agent must not touch.
type AntiScamGate interface {
	Check(text, authorID string) types.ScamVerdict
}

var (
	_ SentimentGate = (*LexiconSentiment)(nil)
	_ AntiScamGate  = (*HeuristicScamGate)(nil)
)

package gate

import (
	"regexp"
	"strings"
)

var raffleRe = regexp.MustCompile(`\b(giveaways?|give away|raffles?|sweepstakes?|contest)\b` +
	`|\b(retweet|rt|repost|like|follow|comment|tag)\b[^.!?\n]{0,40}\b(to enter|to win|for a chance)\b` +
	`|\blike\s*(\+|&|and)\s*(retweet|rt)\b` +
	`|\btag\s+(\d+|a|two|three)\s+friends?\b` +
	`|\benter to win\b|\bwinners? (announced|picked|chosen|drawn)\b`)

// RaffleDetector recognizes giveaway solicitations. The zero value is ready.
type RaffleDetector struct{}

// NewRaffleDetector creates a detector.
func NewRaffleDetector() *RaffleDetector { return &RaffleDetector{} }

// Detect reports whether text solicits raffle or giveaway entries.
func (RaffleDetector) Detect(text string) bool {
	return raffleRe.MatchString(strings.ToLower(text))
}

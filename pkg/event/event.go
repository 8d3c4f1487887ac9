// Package event detects posts that announce a real-world gathering.
package event

import (
	"regexp"
	"strings"

	"github.com/cpunion/reply-bot/pkg/types"
)

// MinSignals is how many independent signals make a post an event.
const MinSignals = 2

var (
	dayRe = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\b|\b(mon|tue|tues|wed|thu|thur|thurs|fri)\b\.?`)

	timeRe = regexp.MustCompile(`\b(1[0-2]|0?[1-9])(:[0-5]\d)?\s?(am|pm|a\.m\.|p\.m\.)|\b([01]?\d|2[0-3]):[0-5]\d\b`)

	feeRe = regexp.MustCompile(`[$€£]\s?\d+(\.\d{1,2})?\s*(entry|entries|buy[- ]?in|fee|to enter|to play)\b` +
		`|\b\d+(\.\d{1,2})?\s?(usd|dollars?|bucks)\s*(entry|buy[- ]?in|fee)\b` +
		`|\b(entry|buy[- ]?in|entry fee)\s*[:\-]?\s*[$€£]\s?\d+` +
		`|\bfree (entry|to enter|to play)\b`)

	venueRe = regexp.MustCompile(`\b\d{1,5}\s+([a-z0-9.']+\s+){1,3}(st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|hwy|highway)\b` +
		`|\b(main st|mall|plaza|card shop|game store|games store|hobby shop|lgs|community center|convention center|expo hall|library|venue)\b`)

	tournamentRe = regexp.MustCompile(`\b(tournament|tourney|league|locals|prerelease|pre-release|regionals|championship|swiss|top cut|sign[- ]?ups?|register|registration|rsvp|bracket|meetup|meet-up|trade night)\b`)
)

// Detector evaluates event signals. The zero value is ready to use.
type Detector struct{}

// NewDetector creates a detector.
func NewDetector() *Detector { return &Detector{} }

// Detect evaluates the five signals against the lower-cased text.
func (d *Detector) Detect(text string) types.EventVerdict {
	lower := strings.ToLower(text)
	r := types.EventReasons{
		DayOfWeek:  dayRe.MatchString(lower),
		TimeOfDay:  timeRe.MatchString(lower),
		EntryFee:   feeRe.MatchString(lower),
		Venue:      venueRe.MatchString(lower),
		Tournament: tournamentRe.MatchString(lower),
	}
	return types.EventVerdict{IsEvent: r.Count() >= MinSignals, Reasons: r}
}

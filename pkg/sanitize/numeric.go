// Package sanitize implements the deterministic text transforms applied to
// every candidate reply before it leaves the composer.
package sanitize

import "regexp"

const (
	// currencyCodes are ISO codes and words that name a currency.
	currencyCodes = `usd|eur|gbp|jpy|cny|rmb|cad|aud|nzd|chf|inr|krw|sgd|hkd|mxn|brl`
	currencyWords = currencyCodes + `|dollars?|bucks|euros?|pounds?|yen|yuan|rupees?`
	amount        = `\d[\d,]*(\.\d+)?`
)

var numericRes = []*regexp.Regexp{
	// currency amounts: $50, -$1.2k, ¥500, 10$, 50 usd, USD 10
	regexp.MustCompile(`(?i)[+\-−]?\p{Sc}\s?` + amount + `\s?[km]?\b`),
	regexp.MustCompile(`(?i)[+\-−]?\b` + amount + `\s?[km]?\s?\p{Sc}`),
	regexp.MustCompile(`(?i)[+\-−]?\b` + amount + `\s?[km]?\s?(` + currencyWords + `)\b`),
	regexp.MustCompile(`(?i)\b(` + currencyCodes + `)\s?[+\-−]?` + amount + `\s?[km]?\b`),
	// percentages: 15%, +3.5 %, 20 percent, 20 per cent, 20 pct
	regexp.MustCompile(`(?i)[+\-−±]?\d+(\.\d+)?\s?(%|percent\b|per\s?cent\b|pct\b)`),
	// period deltas are case-sensitive so "wow" stays a word
	regexp.MustCompile(`\b(WoW|MoM|YoY|DoD|QoQ)\b`),
	// windows: last 7 days, past 24h, over the last 3 weeks, 7d, 24h, 7-day
	regexp.MustCompile(`(?i)\b((over|in) the )?(last|past)\s+\d+\s*(days?|hours?|hrs?|weeks?|wks?|months?|d|h|w)\b`),
	regexp.MustCompile(`(?i)\b\d+\s?(d|h|hr|hrs|wk|wks)\b`),
	regexp.MustCompile(`(?i)\b\d+\s?-\s?(days?|hours?|hrs?|weeks?|wks?|months?)\b`),
	// sale and listing counts: 12 sales, sold 40, 3 listings
	regexp.MustCompile(`(?i)\b\d[\d,]*\s+(sales|sold|listings|listed|comps|transactions)\b`),
	regexp.MustCompile(`(?i)\b(sold|listed)\s+\d[\d,]*\b`),
}

// residueRe finds a digit still touching a currency or percent marker.
var residueRe = regexp.MustCompile(`(?i)\p{Sc}\s?\d|\d\s?[km]?\s?\p{Sc}` +
	`|\b(` + currencyCodes + `)\s?\d` +
	`|\d\s?[km]?\s?(` + currencyWords + `|percent|per\s?cent|pct)\b|\d\s?%`)

// NumericResidue returns the first currency amount or percentage left in
// text, or "".
func NumericResidue(text string) string {
	return residueRe.FindString(text)
}

// StripNumeric removes currency amounts, percentages, period deltas, time
// windows and sale counts. It leaves the surrounding punctuation to Tidy.
func StripNumeric(text string) string {
	for _, re := range numericRes {
		text = re.ReplaceAllString(text, " ")
	}
	return text
}

// EventSafe strips numeric market claims and tidies the result until
// nothing changes, so applying it twice equals applying it once.
func EventSafe(text string) string {
	return fixpoint(text, func(s string) string { return Tidy(StripNumeric(s)) })
}

const maxPasses = 16

func fixpoint(text string, step func(string) string) string {
	for i := 0; i < maxPasses; i++ {
		next := step(text)
		if next == text {
			return next
		}
		text = next
	}
	return text
}

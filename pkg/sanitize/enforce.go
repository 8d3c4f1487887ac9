package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cpunion/reply-bot/pkg/policy"
)

var (
	mentionRe = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	claimRe   = regexp.MustCompile(`(?i)[^.!?]*` + policy.ActionClaimExpr() + `[^.!?]*[.!?]*`)
	openerCut = regexp.MustCompile(`^[\s,.;:!?\-–—]+`)
)

// Enforce scrubs text toward the reply policy: mentions, hashtag marks,
// action-claim sentences and generic openers are removed, and exclamation
// marks beyond the allowed count become periods.
func Enforce(text string) string {
	text = mentionRe.ReplaceAllString(text, "")
	text = hashtagRe.ReplaceAllString(text, "$1")
	text = strings.NewReplacer("@", "", "#", "").Replace(text)
	text = claimRe.ReplaceAllString(text, " ")
	text = stripOpeners(text)
	text = capExclamations(text, policy.MaxExclamations)
	return capitalize(strings.TrimSpace(text))
}

func stripOpeners(text string) string {
	for i := 0; i < len(policy.GenericOpeners); i++ {
		op := policy.GenericOpener(text)
		if op == "" {
			return text
		}
		lead := strings.TrimLeft(text, " \t\n\"'.,!?-:;*")
		words := len(strings.Fields(op))
		fields := strings.Fields(lead)
		if len(fields) < words {
			return ""
		}
		// Cut after the opener's last word, keeping the remainder's spacing.
		idx := 0
		for w := 0; w < words; w++ {
			next := strings.Index(lead[idx:], fields[w])
			idx += next + len(fields[w])
		}
		text = openerCut.ReplaceAllString(lead[idx:], "")
	}
	return text
}

func capExclamations(text string, max int) string {
	seen := 0
	return strings.Map(func(r rune) rune {
		if r != '!' {
			return r
		}
		seen++
		if seen > max {
			return '.'
		}
		return r
	}, text)
}

func capitalize(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}

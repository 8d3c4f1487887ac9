// Package policy holds the hard invariants every emitted reply must satisfy.
// Both the composer and the watchdog check text against the same rules.
package policy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cpunion/reply-bot/pkg/types"
)

// Rule names one invariant.
type Rule string

const (
	RuleEmpty         Rule = "empty"
	RuleLength        Rule = "length"
	RuleHashtag       Rule = "hashtag"
	RuleMention       Rule = "mention"
	RuleActionClaim   Rule = "action_claim"
	RuleExclamation   Rule = "exclamation"
	RuleGenericOpener Rule = "generic_opener"
	// RuleEventNumeric applies to event replies only; the composer checks it.
	RuleEventNumeric Rule = "event_numeric"
)

// MaxExclamations is the most '!' a reply may carry.
const MaxExclamations = 2

// ActionClaims are phrases claiming the agent did something on the platform.
var ActionClaims = []string{
	"i liked", "i retweeted", "i reposted", "i followed", "i just followed",
	"just followed", "following now", "followed you", "liked your", "retweeted your",
	"liked and retweeted", "smashed the like",
}

// GenericOpeners are banned reply openings.
var GenericOpeners = []string{
	"great post", "thanks for sharing", "cool post", "nice post", "interesting post",
	"love this post", "awesome post", "thanks for posting",
}

var (
	actionClaimExpr = phraseExpr(ActionClaims)
	actionClaimRe   = regexp.MustCompile(`(?i)` + actionClaimExpr)
)

// ActionClaimPattern matches any action claim, case-insensitively.
func ActionClaimPattern() *regexp.Regexp { return actionClaimRe }

// ActionClaimExpr is the uncompiled, flag-free action claim expression.
func ActionClaimExpr() string { return actionClaimExpr }

func phraseExpr(phrases []string) string {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}
	return `\b(` + strings.Join(quoted, "|") + `)\b`
}

// Violation is one broken invariant.
type Violation struct {
	Rule   Rule
	Detail string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Rule, v.Detail)
}

// Check returns every invariant text breaks, or nil.
func Check(text string) []Violation {
	var out []Violation
	if strings.TrimSpace(text) == "" {
		return []Violation{{Rule: RuleEmpty, Detail: "empty reply"}}
	}
	if n := len(text); n > types.CharLimit {
		out = append(out, Violation{Rule: RuleLength, Detail: fmt.Sprintf("%d bytes > %d", n, types.CharLimit)})
	}
	if strings.Contains(text, "#") {
		out = append(out, Violation{Rule: RuleHashtag, Detail: "contains '#'"})
	}
	if strings.Contains(text, "@") {
		out = append(out, Violation{Rule: RuleMention, Detail: "contains '@'"})
	}
	if m := actionClaimRe.FindString(text); m != "" {
		out = append(out, Violation{Rule: RuleActionClaim, Detail: fmt.Sprintf("claims %q", m)})
	}
	if n := strings.Count(text, "!"); n > MaxExclamations {
		out = append(out, Violation{Rule: RuleExclamation, Detail: fmt.Sprintf("%d exclamation marks", n)})
	}
	if op := GenericOpener(text); op != "" {
		out = append(out, Violation{Rule: RuleGenericOpener, Detail: fmt.Sprintf("opens with %q", op)})
	}
	return out
}

// Valid reports whether text passes every invariant.
func Valid(text string) bool {
	return len(Check(text)) == 0
}

// GenericOpener returns the banned opener text starts with, or "".
func GenericOpener(text string) string {
	lead := strings.ToLower(strings.TrimLeft(text, " \t\n\"'.,!?-:;*"))
	lead = strings.Join(strings.Fields(lead), " ")
	for _, op := range GenericOpeners {
		if !strings.HasPrefix(lead, op) {
			continue
		}
		if rest := lead[len(op):]; rest != "" {
			r, _ := utf8.DecodeRuneInString(rest)
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				continue
			}
		}
		return op
	}
	return ""
}

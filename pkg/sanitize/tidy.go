package sanitize

import (
	"regexp"
	"strings"
)

var (
	emptyGroupRe    = regexp.MustCompile(`\(\s*[,.;:/\-–—•|]*\s*\)|\[\s*[,.;:/\-–—•|]*\s*\]`)
	spaceBeforeRe   = regexp.MustCompile(`\s+([,.!?;:])`)
	sepBeforeTermRe = regexp.MustCompile(`\s*[,;:•|]+\s*([.!?])`)
	termBeforeSepRe = regexp.MustCompile(`([.!?])[,;:]+`)
	dupSepRe        = regexp.MustCompile(`([,;:])(\s*[,;:])+`)
	terminalRunRe   = regexp.MustCompile(`[.!?]{2,}`)
	dupBulletRe     = regexp.MustCompile(`([•|])(\s*[•|])+`)
	leadingRe       = regexp.MustCompile(`^[\s,.;:!?\-–—•|]+`)
	trailingRe      = regexp.MustCompile(`[\s,;:\-–—•|]+$`)
	spaceRunRe      = regexp.MustCompile(`\s+`)
)

// Tidy repairs punctuation left behind by other transforms: empty
// parentheses, duplicated or misplaced punctuation, stray separators and
// whitespace runs. It is applied until the text stops changing.
func Tidy(text string) string {
	return fixpoint(text, tidyOnce)
}

func tidyOnce(s string) string {
	s = emptyGroupRe.ReplaceAllString(s, "")
	s = spaceBeforeRe.ReplaceAllString(s, "$1")
	s = sepBeforeTermRe.ReplaceAllString(s, "$1")
	s = termBeforeSepRe.ReplaceAllString(s, "$1")
	s = dupSepRe.ReplaceAllString(s, "$1")
	s = terminalRunRe.ReplaceAllStringFunc(s, collapseTerminal)
	s = dupBulletRe.ReplaceAllString(s, "$1")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = leadingRe.ReplaceAllString(s, "")
	s = trailingRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// collapseTerminal keeps an ellipsis, turns ".." into "." and reduces mixed
// runs such as "!!." or "?!" to their first mark.
func collapseTerminal(run string) string {
	if strings.Trim(run, ".") == "" {
		if len(run) >= 3 {
			return "..."
		}
		return "."
	}
	return string(strings.TrimLeft(run, ".")[0])
}

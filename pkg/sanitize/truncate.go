package sanitize

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// Truncate caps text at limit bytes. Longer text is cut on a rune boundary,
// preferably at a word break, and marked with an ellipsis.
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	if limit <= len(Ellipsis) {
		return Ellipsis[:max(limit, 0)]
	}
	budget := limit - len(Ellipsis)
	cut := budget
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	head := text[:cut]
	if sp := strings.LastIndexAny(head, " \n\t"); sp > budget/2 {
		head = head[:sp]
	}
	head = strings.TrimRight(head, " \t\n,;:-–—•")
	return head + Ellipsis
}

package gate

import (
	"regexp"
	"strings"

	"github.com/cpunion/reply-bot/pkg/types"
)

// HeuristicScamGate flags contact solicitations, crypto bait and blocked
// authors.
type HeuristicScamGate struct {
	blocked map[string]bool
}

// NewHeuristicScamGate creates a gate that also skips the given author IDs.
func NewHeuristicScamGate(blockedAuthors ...string) *HeuristicScamGate {
	g := &HeuristicScamGate{blocked: make(map[string]bool, len(blockedAuthors))}
	for _, id := range blockedAuthors {
		g.blocked[normalizeHandle(id)] = true
	}
	return g
}

var scamPatterns = []struct {
	reason string
	re     *regexp.Regexp
}{
	{"contact solicitation", regexp.MustCompile(`\b(dm|message|text|inbox) me\b|\bdm (for|to) (buy|order|price|details)\b|\b(whatsapp|telegram|signal)\b`)},
	{"crypto bait", regexp.MustCompile(`\b(airdrop|seed phrase|wallet connect|connect (your )?wallet|mint now|free nft|usdt|claim (your )?(tokens?|reward))\b`)},
	{"guaranteed returns", regexp.MustCompile(`\b(guaranteed (profit|returns?)|double your (money|investment)|risk[- ]free (profit|investment))\b`)},
	{"shortened link", regexp.MustCompile(`\b(bit\.ly|tinyurl\.com|t\.ly|cutt\.ly|is\.gd|rb\.gy)/`)},
	{"cashapp payment ask", regexp.MustCompile(`\b(cash ?app|zelle|venmo) (only|me|first)\b|\bfriends (and|&) family\b`)},
}

// Check returns Skip for scam-looking posts.
func (g *HeuristicScamGate) Check(text, authorID string) types.ScamVerdict {
	if authorID != "" && g.blocked[normalizeHandle(authorID)] {
		return types.ScamVerdict{Skip: true, Reason: "blocked author"}
	}
	lower := strings.ToLower(text)
	for _, p := range scamPatterns {
		if p.re.MatchString(lower) {
			return types.ScamVerdict{Skip: true, Reason: p.reason}
		}
	}
	return types.ScamVerdict{}
}

func normalizeHandle(id string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(id), "@"))
}

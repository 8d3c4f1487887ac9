package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/cpunion/reply-bot/pkg/policy"
)

func TestEventSafe_MarketClaim(t *testing.T) {
	got := EventSafe("Moonbreon up $50 (15% WoW) last 7d")
	assert.Equal(t, "Moonbreon up", got)
	assert.NotContains(t, got, "  ")
	assert.NotContains(t, got, "(")
}

func TestStripNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Comps at $1,250.00 now.", "Comps at now."},
		{"down -$1.2k since Friday", "down since Friday"},
		{"roughly 40 usd each", "roughly each"},
		{"+3.5 % today", "today"},
		{"wow that is clean", "wow that is clean"},
		{"MoM looks flat", "looks flat"},
		{"over the last 3 weeks it cooled", "it cooled"},
		{"past 24 hours were wild", "were wild"},
		{"24h volume spiked", "volume spiked"},
		{"12 sales and 3 listings", "and"},
		{"sold 40 copies", "copies"},
		{"entry is 10$ and worth it", "entry is and worth it"},
		{"USD 10 this week", "this week"},
		{"EUR 5 entry", "entry"},
		{"Entry runs ¥500 at the door.", "Entry runs at the door."},
		{"₹200 buy-in", "buy-in"},
		{"₩1000 entry", "entry"},
		{"prizes are 20 pct of the pool", "prizes are of the pool"},
		{"20 per cent off", "off"},
		{"a 7-day window", "a window"},
		{"open 24-hour", "open"},
		{"top 4 won packs", "top 4 won packs"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tidy(StripNumeric(tt.in)), "%q", tt.in)
	}
}

func TestTidy(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"nice pull ( ) honestly", "nice pull honestly"},
		{"[ , ] see you there", "see you there"},
		{"wow !!", "wow!"},
		{"wait.. what", "wait. what"},
		{"hmm..... ok", "hmm... ok"},
		{"really?!", "really?"},
		{"fun , right ?", "fun, right?"},
		{"one,, two;; three", "one, two; three"},
		{"done, .", "done."},
		{", leading junk", "leading junk"},
		{"trailing junk ,", "trailing junk"},
		{"a  •  • b", "a • b"},
		{"  spaced \n\t out  ", "spaced out"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tidy(tt.in), "%q", tt.in)
	}
}

func TestEventSafe_Idempotent(t *testing.T) {
	inputs := []string{
		"Moonbreon up $50 (15% WoW) last 7d",
		"Tuesdays 6:00PM • $10 entry • ( +5% ) ..",
		"See you there!! bring ( $5 ) and 3 sales.,",
		"   ",
		"[ ] () ,,, ...",
		"Past 7 days: 12 sales, avg $300 (YoY +40%)",
		"Entry is 10$ or USD 10, ¥500 for 7-day passes, 20 pct to prizes",
	}
	for _, in := range inputs {
		once := EventSafe(in)
		assert.Equal(t, once, EventSafe(once), "%q", in)
		assert.NotRegexp(t, `[$€£]\s?\d|\d\s?%`, once)
		assert.Empty(t, NumericResidue(once), "%q", in)
	}
}

func TestNumericResidue(t *testing.T) {
	for _, in := range []string{"entry 10$", "USD 10", "¥500", "20 pct", "5 per cent", "15 bucks", "3%"} {
		assert.NotEmpty(t, NumericResidue(in), "%q", in)
	}
	for _, in := range []string{"PSA 10 slab", "see you Saturday at 2pm", "top 4 won packs", "best of 3 swiss", ""} {
		assert.Empty(t, NumericResidue(in), "%q", in)
	}
}

func TestEnforce(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@collector that slab is clean", "That slab is clean"},
		{"love the #pokemon art", "Love the pokemon art"},
		{"I liked this one. Centering is sharp.", "Centering is sharp."},
		{"Great post, the art is wild", "The art is wild"},
		{"Thanks for sharing! Cool post. The holo pops", "The holo pops"},
		{"Great postcards here", "Great postcards here"},
		{"wow! wow! wow!", "Wow! wow! wow."},
		{"email me at a@b", "Email me at a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Enforce(tt.in), "%q", tt.in)
	}
}

func TestEnforce_ResultPassesPolicy(t *testing.T) {
	inputs := []string{
		"Great post!!! @shop #tcg I retweeted this, following now. The centering is perfect!!!",
		"cool post",
		"Nice post, nice post, thanks for sharing: solid pickup!",
	}
	for _, in := range inputs {
		out := Tidy(Enforce(in))
		if out == "" {
			continue
		}
		for _, v := range policy.Check(out) {
			t.Errorf("Enforce(%q) = %q still violates %s", in, out, v)
		}
	}
}

func TestTruncate(t *testing.T) {
	short := "short reply"
	assert.Equal(t, short, Truncate(short, 280))

	long := strings.Repeat("word ", 100)
	got := Truncate(long, 280)
	assert.LessOrEqual(t, len(got), 280)
	assert.True(t, strings.HasSuffix(got, Ellipsis))
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, Ellipsis), " "))

	multi := strings.Repeat("é", 200)
	got = Truncate(multi, 280)
	assert.LessOrEqual(t, len(got), 280)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, Ellipsis))

	assert.Equal(t, "..", Truncate("abcdef", 2))
}

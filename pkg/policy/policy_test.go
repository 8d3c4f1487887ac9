package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rules(vs []Violation) []Rule {
	out := make([]Rule, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Rule)
	}
	return out
}

func TestCheck_Clean(t *testing.T) {
	assert.Empty(t, Check("Centering on that Moonbreon looks sharp. Sending it in?"))
	assert.True(t, Valid("Wow! That is clean!"))
}

func TestCheck_Violations(t *testing.T) {
	tests := []struct {
		text string
		want []Rule
	}{
		{"   ", []Rule{RuleEmpty}},
		{strings.Repeat("a", 281), []Rule{RuleLength}},
		{"love it #pokemon", []Rule{RuleHashtag}},
		{"ask @shop about it", []Rule{RuleMention}},
		{"I liked this one", []Rule{RuleActionClaim}},
		{"Following   now, keep it up", []Rule{RuleActionClaim}},
		{"wow!!!", []Rule{RuleExclamation}},
		{"Great post, the art is wild", []Rule{RuleGenericOpener}},
		{`"Thanks for sharing" indeed`, []Rule{RuleGenericOpener}},
		{"Cool post! @you #tcg", []Rule{RuleHashtag, RuleMention, RuleGenericOpener}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rules(Check(tt.text)), "%q", tt.text)
	}
}

func TestCheck_ExactlyAtLimit(t *testing.T) {
	assert.Empty(t, Check(strings.Repeat("a", 280)))
}

func TestGenericOpener_OnlyAtStart(t *testing.T) {
	assert.Equal(t, "", GenericOpener("honestly a great post"))
	assert.Equal(t, "cool post", GenericOpener("...Cool  post honestly"))
}

func TestViolationError(t *testing.T) {
	vs := Check("#1")
	require.Len(t, vs, 1)
	assert.Equal(t, "hashtag: contains '#'", vs[0].Error())
}

func TestActionClaimPattern(t *testing.T) {
	re := ActionClaimPattern()
	assert.True(t, re.MatchString("just FOLLOWED, great pulls"))
	assert.False(t, re.MatchString("I like this"))
}

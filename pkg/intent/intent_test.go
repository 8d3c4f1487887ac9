package intent

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "pok mon tournament tuesdays 6 00pm", Normalize("POKÉMON TOURNAMENT • Tuesdays 6:00PM"))
	assert.Equal(t, "", Normalize("  !!  "))
	assert.Equal(t, "a b", Normalize("a---b"))
}

func TestMatch_PrefixRule(t *testing.T) {
	norm := Normalize("restocking soon at the mall")
	tokens := strings.Fields(norm)

	assert.True(t, Match(norm, tokens, "restocks"), "shared five-char prefix should match")
	assert.True(t, Match(norm, tokens, "mall"), "substring should match")
	assert.False(t, Match(norm, tokens, "rest stop"), "multi-word terms only match as substrings")
	assert.False(t, Match(norm, tokens, "sooner"), "no substring and no token long enough for the prefix")

	norm = Normalize("the etc stuff")
	assert.False(t, Match(norm, strings.Fields(norm), "etb"), "short terms never use the prefix rule")
}

func TestClassify_RetailPrimary(t *testing.T) {
	c := NewDefault()
	res := c.Classify("Target doubled limits for Pro members. Worth lining up today?")

	require.NotEmpty(t, res.RankedIntents)
	assert.Equal(t, "retail", res.PrimaryIntent)
	assert.InDelta(t, 3.0, res.RankedIntents[0].Score, 1e-9)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	assert.InDelta(t, 1.1, res.Score("price"), 1e-9)
	assert.Equal(t, []string{"retail", "price"}, res.IntentNames())
}

func TestClassify_MustGroupGatesIntent(t *testing.T) {
	c := New(Lexicon{{
		Name:   "grading",
		Weight: 1,
		Must:   [][]string{{"psa"}, {"slab"}},
		Any:    []string{"centering"},
	}})

	res := c.Classify("PSA centering looks rough")
	assert.Empty(t, res.RankedIntents)
	assert.Equal(t, "", res.PrimaryIntent)

	res = c.Classify("PSA slab centering looks rough")
	require.Len(t, res.RankedIntents, 1)
	assert.InDelta(t, 1.6, res.RankedIntents[0].Score, 1e-9)
}

func TestClassify_AnyOnlyIntentNeedsCredit(t *testing.T) {
	c := New(Lexicon{{Name: "hype", Weight: 1, Any: []string{"fire", "insane", "crazy"}}})

	assert.Empty(t, c.Classify("that is fire").RankedIntents, "0.6 is below the cutoff")

	res := c.Classify("fire and insane and crazy")
	require.Len(t, res.RankedIntents, 1)
	assert.InDelta(t, 1.8, res.RankedIntents[0].Score, 1e-9)
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
}

func TestClassify_TiesKeepLexiconOrder(t *testing.T) {
	c := New(Lexicon{
		{Name: "b", Weight: 1, Must: [][]string{{"slab"}}},
		{Name: "a", Weight: 1, Must: [][]string{{"slab"}}},
	})
	res := c.Classify("slab")
	assert.Equal(t, []string{"b", "a"}, res.IntentNames())
}

func TestClassify_Empty(t *testing.T) {
	res := NewDefault().Classify("   \n\t ")
	assert.Empty(t, res.RankedIntents)
	assert.Equal(t, "", res.PrimaryIntent)
	assert.Zero(t, res.Confidence)
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewDefault()
	inputs := []string{
		"Target doubled limits for Pro members. Worth lining up today?",
		"Pulled a Moonbreon from a booster pack!! PSA 10 incoming",
		"Pull rates on this set are awful, 1 SIR per box",
		"",
		"vintage base set shadowless charizard value?",
	}
	for _, in := range inputs {
		first := c.Classify(in)
		second := c.Classify(in)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("Classify(%q) not deterministic (-first +second):\n%s", in, diff)
		}
	}
}

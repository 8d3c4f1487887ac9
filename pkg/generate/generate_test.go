package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cpunion/reply-bot/pkg/policy"
	"github.com/cpunion/reply-bot/pkg/types"
)

func TestAuthority(t *testing.T) {
	a := Authority{}

	assert.False(t, a.IsExpertLevel("sent it to PSA"))
	assert.Equal(t, "", a.Generate("sent it to PSA", false))

	text := "Centering is 55/45 and the corners look soft, PSA will knock it"
	assert.True(t, a.IsExpertLevel(text))
	got := a.Generate(text, false)
	assert.Contains(t, got, "Centering is usually the first thing graders knock")

	withImages := a.Generate(text, true)
	assert.Contains(t, withImages, "From the photos")
}

func TestAuthority_DuplicateRepliesCountOnce(t *testing.T) {
	assert.False(t, Authority{}.IsExpertLevel("first edition or 1st edition?"))
}

func TestHumanLike(t *testing.T) {
	h := HumanLike{}
	assert.Equal(t, "", h.Generate("  ", Context{}))

	thread := h.Generate("agree", Context{Snippet: "Thread (2 earlier): ..."})
	assert.Contains(t, threadReplies, thread)

	hype := h.Generate("finally pulled it", Context{Sentiment: types.SentimentPositive})
	assert.Contains(t, hypeReplies, hype)

	casual := h.Generate("limits doubled", Context{Sentiment: types.SentimentNeutral})
	assert.Contains(t, casualReplies, casual)
	assert.Equal(t, casual, h.Generate("limits doubled", Context{Sentiment: types.SentimentNeutral}), "deterministic")
}

func TestContextFallback(t *testing.T) {
	f := ContextFallback{}
	assert.Contains(t, intentReplies["retail"], f.Generate("lines at target", []string{"retail", "price"}))
	assert.Contains(t, intentReplies["price"], f.Generate("x", []string{"unknown", "price"}))
	assert.Equal(t, "", f.Generate("ok", nil))
	assert.Contains(t, genericReplies, f.Generate("what does everyone think about this", nil))
}

func TestTemplatesPassPolicy(t *testing.T) {
	var all []string
	all = append(all, eventReplies...)
	all = append(all, threadReplies...)
	all = append(all, hypeReplies...)
	all = append(all, casualReplies...)
	all = append(all, genericReplies...)
	for _, opts := range intentReplies {
		all = append(all, opts...)
	}
	for _, t2 := range expertTerms {
		all = append(all, t2.reply+" From the photos it looks promising.")
	}
	for _, text := range all {
		assert.Empty(t, policy.Check(text), text)
		assert.NotRegexp(t, `[$€£]|\d\s?%`, text)
	}
}

func TestEventReply(t *testing.T) {
	got := EventReply("Tuesdays 6PM tournament")
	assert.Contains(t, eventReplies, got)
	assert.Equal(t, got, EventReply("tuesdays 6pm tournament "))
}

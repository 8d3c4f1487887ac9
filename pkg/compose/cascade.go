package compose

import (
	"context"

	"github.com/cpunion/reply-bot/pkg/generate"
	"github.com/cpunion/reply-bot/pkg/price"
	"github.com/cpunion/reply-bot/pkg/types"
)

// input is what the strategy handlers read for one post.
type input struct {
	post           types.Post
	classification types.ClassificationResult
	sentiment      types.SentimentResult
	visual         *types.VisualFacts
	features       types.Features
	snippet        string
}

// handler produces text for one strategy, or "" to fall through.
type handler struct {
	strategy types.Strategy
	run      func(ctx context.Context, in *input) string
}

// cascade lists the handlers in fall-through order.
func (c *Composer) cascade() []handler {
	return []handler{
		{types.StrategyPrice, c.priceReply},
		{types.StrategyVisual, c.visualReply},
		{types.StrategyAuthority, c.authorityReply},
		{types.StrategyThreadAware, c.threadReply},
		{types.StrategyHumanLike, c.humanReply},
		{types.StrategyFallback, c.fallbackReply},
	}
}

// cascadeFrom returns the handlers from the picked strategy onward.
func (c *Composer) cascadeFrom(s types.Strategy) []handler {
	all := c.cascade()
	for i, h := range all {
		if h.strategy == s {
			return all[i:]
		}
	}
	return all[len(all)-1:]
}

func (c *Composer) priceReply(ctx context.Context, in *input) string {
	if c.deps.Price == nil || len(in.features.Entities) == 0 {
		return ""
	}
	facts, err := c.deps.Price.Lookup(ctx, in.features.Entities)
	if err != nil {
		c.log.WithError(err).WithField("strategy", "price").Warn("price lookup failed")
		return ""
	}
	return price.Compose(facts)
}

func (c *Composer) visualReply(_ context.Context, in *input) string {
	if c.deps.Visual == nil || in.visual.Empty() {
		return ""
	}
	text, err := c.deps.Visual.ComposeFromFacts(in.post.Text, in.visual)
	if err != nil {
		c.log.WithError(err).WithField("strategy", "visual").Warn("visual compose failed")
		return ""
	}
	return text
}

func (c *Composer) authorityReply(_ context.Context, in *input) string {
	if c.deps.Authority == nil || !c.deps.Authority.IsExpertLevel(in.post.Text) {
		return ""
	}
	return c.deps.Authority.Generate(in.post.Text, in.features.HasImages)
}

func (c *Composer) threadReply(_ context.Context, in *input) string {
	if c.deps.HumanLike == nil || in.snippet == "" {
		return ""
	}
	return c.deps.HumanLike.Generate(in.post.Text, generate.Context{
		Snippet:   in.snippet,
		Intents:   in.classification.IntentNames(),
		Sentiment: in.features.Sentiment,
	})
}

func (c *Composer) humanReply(_ context.Context, in *input) string {
	if c.deps.HumanLike == nil {
		return ""
	}
	return c.deps.HumanLike.Generate(in.post.Text, generate.Context{
		Intents:   in.classification.IntentNames(),
		Sentiment: in.features.Sentiment,
	})
}

func (c *Composer) fallbackReply(_ context.Context, in *input) string {
	if c.deps.Fallback == nil {
		return ""
	}
	return c.deps.Fallback.Generate(in.post.Text, in.classification.IntentNames())
}

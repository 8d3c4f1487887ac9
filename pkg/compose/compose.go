// Package compose turns an observed post into a reply, or into a decision
// not to reply.
package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cpunion/reply-bot/pkg/event"
	"github.com/cpunion/reply-bot/pkg/gate"
	"github.com/cpunion/reply-bot/pkg/generate"
	"github.com/cpunion/reply-bot/pkg/intent"
	"github.com/cpunion/reply-bot/pkg/llm"
	"github.com/cpunion/reply-bot/pkg/logging"
	"github.com/cpunion/reply-bot/pkg/metrics"
	"github.com/cpunion/reply-bot/pkg/persona"
	"github.com/cpunion/reply-bot/pkg/policy"
	"github.com/cpunion/reply-bot/pkg/price"
	"github.com/cpunion/reply-bot/pkg/sanitize"
	"github.com/cpunion/reply-bot/pkg/strategy"
	"github.com/cpunion/reply-bot/pkg/thread"
	"github.com/cpunion/reply-bot/pkg/types"
	"github.com/cpunion/reply-bot/pkg/visual"
)

// Collaborator surfaces. The concrete implementations live in their own
// packages; tests swap in fakes.
type (
	RaffleDetector interface {
		Detect(text string) bool
	}
	EventDetector interface {
		Detect(text string) types.EventVerdict
	}
	Classifier interface {
		Classify(text string) types.ClassificationResult
	}
	StrategyPicker interface {
		Pick(f types.Features) types.StrategyDecision
	}
	AuthorityGenerator interface {
		IsExpertLevel(text string) bool
		Generate(text string, hasImages bool) string
	}
	HumanLikeGenerator interface {
		Generate(text string, ctx generate.Context) string
	}
	FallbackGenerator interface {
		Generate(text string, intents []string) string
	}
	BackendChain interface {
		Generate(ctx context.Context, p llm.Prompt) (text, source string, err error)
	}
)

// Deps wires the composer. Any nil collaborator skips its stage.
type Deps struct {
	Sentiment gate.SentimentGate
	Scam      gate.AntiScamGate
	Raffle    RaffleDetector
	Event     EventDetector

	Classifier Classifier
	Picker     StrategyPicker

	Price      price.Engine
	Visual     visual.Analyzer
	Authority  AuthorityGenerator
	HumanLike  HumanLikeGenerator
	Fallback   FallbackGenerator
	EventReply func(text string) string
	Chain      BackendChain

	Styler    *persona.Styler
	CharLimit int

	Log     logrus.FieldLogger
	Metrics *metrics.Collector
}

// DefaultDeps returns the built-in heuristic collaborators. Price, Visual and
// Chain are left for the caller.
func DefaultDeps() Deps {
	authority := generate.Authority{}
	return Deps{
		Sentiment:  gate.NewLexiconSentiment(),
		Scam:       gate.NewHeuristicScamGate(),
		Raffle:     gate.NewRaffleDetector(),
		Event:      event.NewDetector(),
		Classifier: intent.NewDefault(),
		Picker:     strategy.NewPicker(authority.IsExpertLevel),
		Authority:  authority,
		HumanLike:  generate.HumanLike{},
		Fallback:   generate.ContextFallback{},
		EventReply: generate.EventReply,
		Styler:     persona.NewStyler("", ""),
		CharLimit:  types.CharLimit,
	}
}

// Options tune one call.
type Options struct {
	NoPrefix bool
	Trace    TraceFunc
}

// Decision is the full outcome for one post. Response is nil when the
// composer chose silence; Outcome says why.
type Decision struct {
	Response       *types.Response
	Outcome        string
	Reason         string
	Mode           types.Mode
	Classification types.ClassificationResult
	// Strategy is nil when no strategy was picked (skipped or event posts).
	Strategy *types.StrategyDecision
	Event    types.EventVerdict
}

// Composer runs the reply pipeline. It is safe for concurrent use when its
// collaborators are.
type Composer struct {
	deps Deps
	log  logrus.FieldLogger
}

// New creates a composer.
func New(deps Deps) *Composer {
	if deps.Styler == nil {
		deps.Styler = persona.NewStyler("", "")
	}
	if deps.CharLimit <= 0 || deps.CharLimit > types.CharLimit {
		deps.CharLimit = types.CharLimit
	}
	if deps.Picker == nil {
		var expert strategy.ExpertFunc
		if deps.Authority != nil {
			expert = deps.Authority.IsExpertLevel
		}
		deps.Picker = strategy.NewPicker(expert)
	}
	return &Composer{deps: deps, log: logging.Component(deps.Log, "composer")}
}

// ComposeResponse returns the reply for post, or nil for no reply. The only
// error is the context's.
func (c *Composer) ComposeResponse(ctx context.Context, post types.Post, opts Options) (*types.Response, error) {
	d, err := c.Decide(ctx, post, opts)
	if err != nil {
		return nil, err
	}
	return d.Response, nil
}

// Decide runs the pipeline and reports everything it decided.
func (c *Composer) Decide(ctx context.Context, post types.Post, opts Options) (Decision, error) {
	trace := opts.Trace
	if trace == nil {
		trace = func(State, string) {}
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	log := c.log.WithField("post", post.ID)
	trace(StateReceived, post.ID)

	d := Decision{Mode: types.ModeStrategy}
	sent := c.sentiment(post.Text)
	if outcome, reason := c.gate(post, sent); outcome != "" {
		d.Outcome, d.Reason = outcome, reason
		log.WithField("reason", reason).Info("skipping post")
		trace(StateGated, outcome)
		return c.finish(d, trace), nil
	}
	if c.deps.Event != nil {
		d.Event = safeCall(c, "event", func() types.EventVerdict { return c.deps.Event.Detect(post.Text) })
		if d.Event.IsEvent {
			d.Mode = types.ModeEvent
		}
	}
	trace(StateGated, string(d.Mode))

	if c.deps.Classifier != nil {
		d.Classification = safeCall(c, "classifier", func() types.ClassificationResult {
			return c.deps.Classifier.Classify(post.Text)
		})
	}
	intents := d.Classification.IntentNames()
	trace(StateClassified, strings.Join(intents, ","))

	in := &input{
		post:           post,
		classification: d.Classification,
		snippet:        thread.BuildSnippet(post.Thread),
	}
	if d.Mode != types.ModeEvent {
		in.sentiment = sent
		in.visual = c.analyzeImages(ctx, post)
		in.features = strategy.Extract(strategy.Input{
			Post:           post,
			Classification: d.Classification,
			Sentiment:      in.sentiment,
			Visual:         in.visual,
		})
		picked := safeCall(c, "picker", func() types.StrategyDecision { return c.deps.Picker.Pick(in.features) })
		if !picked.Strategy.Valid() {
			picked = types.StrategyDecision{Strategy: types.StrategyFallback, Reason: "invalid strategy"}
		}
		d.Strategy = &picked
		c.deps.Metrics.Strategy(picked.Strategy.String())
		log.WithFields(logging.Fields{
			"strategy":   picked.Strategy.String(),
			"confidence": picked.Confidence,
		}).Debug(picked.Reason)
		trace(StateStrategySelected, picked.Strategy.String())
	}

	text, meta, err := c.generate(ctx, d, in)
	if err != nil {
		return Decision{}, err
	}
	trace(StateGenerated, meta.Source)
	if strings.TrimSpace(text) == "" {
		d.Outcome, d.Reason = OutcomeEmpty, "no generator produced text"
		return c.finish(d, trace), nil
	}

	final, violations := c.sanitize(text, d, opts)
	trace(StateSanitized, final)
	if len(violations) > 0 {
		d.Outcome, d.Reason = OutcomeBlocked, violations[0].Error()
		log.WithField("violation", violations[0].Error()).Warn("composed reply failed policy")
		return c.finish(d, trace), nil
	}

	meta.Intents = intents
	if meta.Mode == "" {
		meta.Mode = d.Mode
	}
	d.Mode = meta.Mode
	d.Response = &types.Response{Text: final, Meta: meta}
	d.Outcome = OutcomeReplied
	return c.finish(d, trace), nil
}

func (c *Composer) finish(d Decision, trace TraceFunc) Decision {
	c.deps.Metrics.Decision(d.Outcome)
	trace(StateTerminal, d.Outcome)
	return d
}

// gate returns a skip outcome, or "" to continue.
func (c *Composer) gate(post types.Post, res types.SentimentResult) (string, string) {
	if c.deps.Sentiment != nil {
		decision := safeCall(c, "sentiment", func() types.EngageDecision {
			return c.deps.Sentiment.ShouldEngage(res)
		})
		if res.Sentiment != "" && !decision.Engage {
			return OutcomeSkippedSentiment, decision.Reason
		}
	}
	if c.deps.Scam != nil {
		v := safeCall(c, "scam", func() types.ScamVerdict { return c.deps.Scam.Check(post.Text, post.AuthorID) })
		if v.Skip {
			return OutcomeSkippedScam, v.Reason
		}
	}
	if c.deps.Raffle != nil {
		if safeCall(c, "raffle", func() bool { return c.deps.Raffle.Detect(post.Text) }) {
			return OutcomeSkippedRaffle, "raffle or giveaway"
		}
	}
	return "", ""
}

func (c *Composer) sentiment(text string) types.SentimentResult {
	if c.deps.Sentiment == nil {
		return types.SentimentResult{}
	}
	return safeCall(c, "sentiment", func() types.SentimentResult { return c.deps.Sentiment.Evaluate(text) })
}

// analyzeImages returns facts for the first image that yields any.
func (c *Composer) analyzeImages(ctx context.Context, post types.Post) *types.VisualFacts {
	if c.deps.Visual == nil {
		return nil
	}
	for _, ref := range post.ImageRefs {
		facts, err := safeCallErr("visual", func() (*types.VisualFacts, error) {
			return c.deps.Visual.Analyze(ctx, ref)
		})
		if err != nil {
			c.log.WithError(err).WithField("image", ref).Warn("visual analysis failed")
			continue
		}
		if !facts.Empty() {
			return facts
		}
	}
	return nil
}

func (c *Composer) generate(ctx context.Context, d Decision, in *input) (string, types.ResponseMeta, error) {
	if d.Mode == types.ModeEvent && c.deps.EventReply != nil {
		text := safeCall(c, "event_reply", func() string { return c.deps.EventReply(in.post.Text) })
		if strings.TrimSpace(text) != "" {
			return text, types.ResponseMeta{Source: "event_template"}, nil
		}
	}
	if d.Strategy != nil {
		for _, h := range c.cascadeFrom(d.Strategy.Strategy) {
			if err := ctx.Err(); err != nil {
				return "", types.ResponseMeta{}, err
			}
			text := safeCall(c, h.strategy.String(), func() string { return h.run(ctx, in) })
			if strings.TrimSpace(text) != "" {
				return text, types.ResponseMeta{Strategy: h.strategy.String(), Source: h.strategy.String()}, nil
			}
		}
	}
	if c.deps.Chain == nil {
		return "", types.ResponseMeta{}, nil
	}

	prompt := llm.BuildPrompt(llm.PromptInput{
		Post:           in.post,
		Classification: in.classification,
		Snippet:        in.snippet,
		EventMode:      d.Mode == types.ModeEvent,
	})
	res, err := safeCallErr("backend_chain", func() (chainResult, error) {
		text, source, err := c.deps.Chain.Generate(ctx, prompt)
		return chainResult{text: text, source: source}, err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", types.ResponseMeta{}, ctxErr
		}
		c.log.WithError(err).Warn("no backend produced a reply")
		return "", types.ResponseMeta{}, nil
	}
	meta := types.ResponseMeta{Source: res.source}
	if d.Mode != types.ModeEvent {
		meta.Mode = types.ModeBackend
	}
	if d.Strategy != nil {
		meta.Strategy = d.Strategy.Strategy.String()
	}
	return res.text, meta, nil
}

// sanitize styles and scrubs text and checks it against policy.
func (c *Composer) sanitize(text string, d Decision, opts Options) (string, []policy.Violation) {
	styled := c.deps.Styler.Style(text, persona.Options{
		Confidence: d.Classification.Confidence,
		Intents:    d.Classification.IntentNames(),
		NoPrefix:   opts.NoPrefix || d.Mode == types.ModeEvent,
	})
	out := sanitize.Enforce(styled)
	if d.Mode == types.ModeEvent {
		out = sanitize.EventSafe(out)
	}
	out = sanitize.Truncate(sanitize.Tidy(out), c.deps.CharLimit)
	violations := policy.Check(out)
	if d.Mode == types.ModeEvent {
		if m := sanitize.NumericResidue(out); m != "" {
			violations = append(violations, policy.Violation{Rule: policy.RuleEventNumeric, Detail: fmt.Sprintf("event reply keeps %q", m)})
		}
	}
	return out, violations
}

var errPanic = errors.New("recovered panic")

// safeCall runs fn and turns a panic into the zero value.
func safeCall[T any](c *Composer, stage string, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("stage", stage).WithError(fmt.Errorf("%w: %v", errPanic, r)).Warn("stage failed")
			var zero T
			out = zero
		}
	}()
	return fn()
}

type chainResult struct {
	text   string
	source string
}

// safeCallErr runs fn and turns a panic into an error.
func safeCallErr[T any](stage string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, err = zero, fmt.Errorf("%s: %w: %v", stage, errPanic, r)
		}
	}()
	return fn()
}

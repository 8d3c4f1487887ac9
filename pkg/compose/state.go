package compose

// State is a step in the per-post pipeline.
type State string

const (
	StateReceived         State = "received"
	StateGated            State = "gated"
	StateClassified       State = "classified"
	StateStrategySelected State = "strategy_selected"
	StateGenerated        State = "generated"
	StateSanitized        State = "sanitized"
	StateTerminal         State = "terminal"
)

// Outcome labels for the decision counter and the audit log.
const (
	OutcomeReplied          = "replied"
	OutcomeSkippedSentiment = "skipped_sentiment"
	OutcomeSkippedScam      = "skipped_scam"
	OutcomeSkippedRaffle    = "skipped_raffle"
	OutcomeEmpty            = "empty"
	OutcomeBlocked          = "blocked"
)

// TraceFunc receives each state transition with a short detail.
type TraceFunc func(state State, detail string)

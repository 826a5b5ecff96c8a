package audit

import "time"

// Actor identifies who performed an action.
type Actor string

const (
	ActorPipeline Actor = "pipeline"
	ActorUser     Actor = "user"
)

// Outcome is what happened to a proposed action. Every action gets
// exactly one entry regardless of outcome; drops are recorded, not
// silently discarded.
type Outcome string

const (
	OutcomeApplied              Outcome = "applied"
	OutcomeDeferred             Outcome = "deferred"
	OutcomeDroppedPolicy        Outcome = "dropped_policy"
	OutcomeDroppedLowConfidence Outcome = "dropped_low_confidence"
	OutcomeFailed               Outcome = "failed"
	OutcomeConflictFlagged      Outcome = "conflict_flagged"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     Actor     `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	Outcome   Outcome   `json:"outcome"`

	// Confidence is the scored confidence band behind the action.
	Confidence string `json:"confidence,omitempty"`

	// Evidence points at what justified the action, typically the
	// source session and artifact title.
	Evidence string `json:"evidence,omitempty"`

	// PreviousValue captures the state a mutation replaced, recorded
	// before the mutation runs.
	PreviousValue string `json:"previous_value,omitempty"`

	Detail string `json:"detail,omitempty"`
}

package reconcile

import "time"

// ActionType names a proposed mutation of external state. The executor
// checks these against its allow and deny lists; the reconciler only
// proposes.
type ActionType string

const (
	ActionCreateItem       ActionType = "create_item"
	ActionAppendNote       ActionType = "append_note"
	ActionMarkDone         ActionType = "mark_done"
	ActionCreateDoc        ActionType = "create_doc"
	ActionAppendDocSection ActionType = "append_doc_section"
	ActionProposeFix       ActionType = "propose_fix"
)

// Confidence is the banded trust level behind an action.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Action is one proposed change to external state.
type Action struct {
	Type       ActionType `json:"type"`
	TargetID   string     `json:"target_id,omitempty"`
	Title      string     `json:"title"`
	Section    string     `json:"section,omitempty"`
	Content    string     `json:"content,omitempty"`
	Rationale  string     `json:"rationale"`
	Confidence Confidence `json:"confidence"`
	Score      float64    `json:"score"`

	SourceArtifact string `json:"source_artifact"`
	SourceSession  string `json:"source_session,omitempty"`
	Evidence       string `json:"evidence,omitempty"`
}

// Conflict records a contradiction between an artifact and external or
// stored state. Conflicts are flagged for a human, never resolved
// automatically.
type Conflict struct {
	ArtifactTitle  string `json:"artifact_title"`
	Subject        string `json:"subject"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// Plan is the output of one reconciliation run.
type Plan struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Actions     []Action   `json:"actions"`
	Conflicts   []Conflict `json:"conflicts"`
	Satisfied   int        `json:"satisfied"`
	Summary     string     `json:"summary"`
}

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kortfolk/chronicle/internal/llm"
	"github.com/kortfolk/chronicle/internal/session"
)

// ArtifactType classifies a work product.
type ArtifactType string

const (
	ArtifactPlan         ArtifactType = "plan"
	ArtifactAnalysis     ArtifactType = "analysis"
	ArtifactFramework    ArtifactType = "framework"
	ArtifactErrorPattern ArtifactType = "error_pattern"
	ArtifactDecision     ArtifactType = "decision_with_context"
)

// Artifact is a substantial work product lifted out of a session:
// a plan, an analysis, a reusable framework, an error pattern, or a
// contextualized decision. Artifacts queue up for reconciliation
// against external state; they are not written to the fact store.
type Artifact struct {
	Type     ArtifactType `json:"type"`
	Title    string       `json:"title"`
	Summary  string       `json:"summary"`
	Content  string       `json:"content"`
	Domain   string       `json:"domain"`
	Entities []string     `json:"entities,omitempty"`

	// Provenance stamped by the extractor, not the model.
	SourceSession string    `json:"source_session"`
	ExtractedAt   time.Time `json:"extracted_at"`

	// ToolVerified means the batch that produced this artifact showed
	// actual tool activity, hard evidence that claimed work ran.
	ToolVerified bool `json:"tool_verified,omitempty"`
}

// ArtifactExtractor lifts artifacts out of new transcript messages.
type ArtifactExtractor struct {
	provider llm.Provider
	model    string
}

// NewArtifactExtractor creates an artifact extractor on the given
// provider and model.
func NewArtifactExtractor(provider llm.Provider, model string) *ArtifactExtractor {
	return &ArtifactExtractor{provider: provider, model: model}
}

// Extract proposes artifacts from the delta's new messages. The frame
// is a rendered description of current external state used to place
// artifacts in the right domain.
func (e *ArtifactExtractor) Extract(ctx context.Context, delta session.Delta, frame, sourceSession string) ([]Artifact, error) {
	if len(delta.New) == 0 {
		return nil, ErrEmptyInput
	}
	if frame == "" {
		frame = "(no workspace context available)"
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model:       e.model,
		Messages:    llm.Chat(artifactSystemPrompt, fmt.Sprintf(artifactUserPrompt, frame, RenderTranscript(delta))),
		MaxTokens:   8192,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelCall, err)
	}

	var parsed struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	if err := json.Unmarshal([]byte(CleanModelJSON(resp.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: unparseable artifact output: %v", ErrModelCall, err)
	}

	toolVerified := false
	for _, m := range delta.New {
		if m.ToolUse {
			toolVerified = true
			break
		}
	}

	now := time.Now().UTC()
	var out []Artifact
	for _, a := range parsed.Artifacts {
		if a.Title == "" || !validArtifactType(a.Type) {
			continue
		}
		if a.Domain == "" {
			a.Domain = "general"
		}
		a.SourceSession = sourceSession
		a.ExtractedAt = now
		a.ToolVerified = toolVerified
		out = append(out, a)
	}
	return out, nil
}

func validArtifactType(t ArtifactType) bool {
	switch t {
	case ArtifactPlan, ArtifactAnalysis, ArtifactFramework, ArtifactErrorPattern, ArtifactDecision:
		return true
	}
	return false
}

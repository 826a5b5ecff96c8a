package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kortfolk/chronicle/internal/kb"
	"github.com/kortfolk/chronicle/internal/llm"
	"github.com/kortfolk/chronicle/internal/session"
)

// ErrEmptyInput means there was nothing new to extract from. Callers
// treat it as a successful no-op and advance their offset.
var ErrEmptyInput = errors.New("no new input to extract from")

// ErrModelCall wraps any failure at the model boundary, including
// unparseable model output. Callers must not advance offsets when
// they see it.
var ErrModelCall = errors.New("model call failed")

// Extractor turns new transcript messages into a knowledge proposal.
// It never writes to the store; the proposal goes through kb.Writer.
type Extractor struct {
	provider llm.Provider
	model    string
}

// NewExtractor creates an extractor on the given provider and model.
func NewExtractor(provider llm.Provider, model string) *Extractor {
	return &Extractor{provider: provider, model: model}
}

// Extract proposes entities, facts, relations and decisions from the
// delta's new messages. The known subgraph is passed to the model so
// it can mark facts it only echoed back from context.
func (e *Extractor) Extract(ctx context.Context, delta session.Delta, known *kb.Subgraph) (*kb.Proposal, error) {
	if len(delta.New) == 0 {
		return nil, ErrEmptyInput
	}

	knownJSON := "{}"
	if known != nil && len(known.Entities) > 0 {
		data, err := json.MarshalIndent(known, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding known context: %w", err)
		}
		knownJSON = string(data)
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model:       e.model,
		Messages:    llm.Chat(factSystemPrompt, fmt.Sprintf(factUserPrompt, knownJSON, RenderTranscript(delta))),
		MaxTokens:   4096,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelCall, err)
	}

	var proposal kb.Proposal
	if err := json.Unmarshal([]byte(CleanModelJSON(resp.Content)), &proposal); err != nil {
		return nil, fmt.Errorf("%w: unparseable extraction output: %v", ErrModelCall, err)
	}
	return &proposal, nil
}

// RenderTranscript lays out a delta for the model, separating already
// processed context from the messages being extracted.
func RenderTranscript(delta session.Delta) string {
	var sb strings.Builder
	if len(delta.Context) > 0 {
		sb.WriteString("=== EARLIER CONTEXT (already processed, do not re-extract) ===\n")
		for _, m := range delta.Context {
			writeMessage(&sb, m)
		}
	}
	sb.WriteString("=== NEW MESSAGES ===\n")
	for _, m := range delta.New {
		writeMessage(&sb, m)
	}
	return sb.String()
}

func writeMessage(sb *strings.Builder, m session.Message) {
	role := strings.ToUpper(m.Role)
	content := m.Content
	if m.ToolUse && content == "" {
		content = "[tool activity]"
	}
	fmt.Fprintf(sb, "%s: %s\n", role, content)
}

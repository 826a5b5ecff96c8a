package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Stage names an independent consumer of session transcripts. Each
// stage keeps its own high-water marks so fact extraction and artifact
// extraction can progress separately over the same sources.
type Stage string

const (
	StageFacts     Stage = "facts"
	StageArtifacts Stage = "artifacts"
)

// DefaultContextWindow is how many already-processed messages Delta
// hands back as context ahead of the new ones.
const DefaultContextWindow = 10

// Tracker persists per-source offsets for one stage. An offset is the
// count of messages already consumed from that source; it only moves
// forward, and callers advance it as the final step of a fully
// successful batch.
type Tracker struct {
	path  string
	state trackerState

	// ContextWindow controls how much processed tail Delta returns.
	ContextWindow int

	// FirstRunTail, when set, bounds the very first batch for a source
	// to its last N messages instead of the whole transcript.
	FirstRunTail int
}

type trackerState struct {
	Offsets     map[string]int `json:"offsets"`
	LastUpdated time.Time      `json:"last_updated"`
}

// LoadTracker reads the offset file for a stage from dir, returning an
// empty tracker when the file does not exist yet.
func LoadTracker(dir string, stage Stage) (*Tracker, error) {
	t := &Tracker{
		path:          filepath.Join(dir, fmt.Sprintf("offsets-%s.json", stage)),
		state:         trackerState{Offsets: make(map[string]int)},
		ContextWindow: DefaultContextWindow,
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("reading offsets: %w", err)
	}
	if err := json.Unmarshal(data, &t.state); err != nil {
		return nil, fmt.Errorf("parsing offsets %s: %w", t.path, err)
	}
	if t.state.Offsets == nil {
		t.state.Offsets = make(map[string]int)
	}
	return t, nil
}

// Offset returns the number of messages already consumed from a
// source, zero for sources never seen.
func (t *Tracker) Offset(sourceID string) int {
	return t.state.Offsets[sourceID]
}

// Advance moves a source's offset forward and persists the file.
// A value at or below the current offset is ignored and logged;
// offsets never regress.
func (t *Tracker) Advance(sourceID string, n int) error {
	current := t.state.Offsets[sourceID]
	if n <= current {
		log.Printf("session: ignoring offset %d for %s, already at %d", n, sourceID, current)
		return nil
	}
	t.state.Offsets[sourceID] = n
	return t.save()
}

func (t *Tracker) save() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	t.state.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.path, data, 0o644)
}

// Delta splits a source's messages into already-processed context
// (the trailing ContextWindow before the offset) and unprocessed new
// messages. NextOffset is what the caller should Advance to after the
// batch fully succeeds.
type Delta struct {
	Context    []Message
	New        []Message
	NextOffset int
}

// Delta computes the batch for a source. Offsets beyond the transcript
// length clamp to it, so a truncated source yields an empty batch
// rather than a panic.
func (t *Tracker) Delta(sourceID string, messages []Message) Delta {
	offset := t.state.Offsets[sourceID]
	if offset == 0 && t.FirstRunTail > 0 && len(messages) > t.FirstRunTail {
		offset = len(messages) - t.FirstRunTail
	}
	if offset > len(messages) {
		offset = len(messages)
	}

	window := t.ContextWindow
	if window <= 0 {
		window = DefaultContextWindow
	}
	ctxStart := offset - window
	if ctxStart < 0 {
		ctxStart = 0
	}

	return Delta{
		Context:    messages[ctxStart:offset],
		New:        messages[offset:],
		NextOffset: len(messages),
	}
}

// Sources returns every source id the tracker has seen.
func (t *Tracker) Sources() []string {
	out := make([]string, 0, len(t.state.Offsets))
	for id := range t.state.Offsets {
		out = append(out, id)
	}
	return out
}

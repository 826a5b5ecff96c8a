package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kortfolk/chronicle/internal/reconcile"
)

// ErrProposalNotFound is returned when an id is not in the queue.
var ErrProposalNotFound = errors.New("proposal not found")

// Proposal is a deferred action waiting for a human verdict.
type Proposal struct {
	ID       string           `json:"id"`
	Action   reconcile.Action `json:"action"`
	QueuedAt time.Time        `json:"queued_at"`
}

// ProposalQueue persists deferred actions as JSON on disk. Approving a
// proposal removes it from the queue and hands the action back with
// its confidence overridden; dismissing just removes it.
type ProposalQueue struct {
	path string
}

// NewProposalQueue stores proposals under dir.
func NewProposalQueue(dir string) *ProposalQueue {
	return &ProposalQueue{path: filepath.Join(dir, "proposals.json")}
}

// Pending returns queued proposals oldest first.
func (q *ProposalQueue) Pending() ([]Proposal, error) {
	return q.load()
}

// Add queues a deferred action.
func (q *ProposalQueue) Add(action reconcile.Action) error {
	proposals, err := q.load()
	if err != nil {
		return err
	}
	proposals = append(proposals, Proposal{
		ID:       uuid.NewString(),
		Action:   action,
		QueuedAt: time.Now().UTC(),
	})
	return q.save(proposals)
}

// Approve removes the proposal and returns its action promoted to high
// confidence, so the caller can pass it to ExecuteApproved.
func (q *ProposalQueue) Approve(id string) (reconcile.Action, error) {
	proposals, err := q.load()
	if err != nil {
		return reconcile.Action{}, err
	}
	for i, p := range proposals {
		if p.ID != id {
			continue
		}
		if err := q.save(append(proposals[:i], proposals[i+1:]...)); err != nil {
			return reconcile.Action{}, err
		}
		action := p.Action
		action.Confidence = reconcile.ConfidenceHigh
		return action, nil
	}
	return reconcile.Action{}, fmt.Errorf("%w: %s", ErrProposalNotFound, id)
}

// Dismiss removes the proposal without executing it.
func (q *ProposalQueue) Dismiss(id string) error {
	proposals, err := q.load()
	if err != nil {
		return err
	}
	for i, p := range proposals {
		if p.ID == id {
			return q.save(append(proposals[:i], proposals[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %s", ErrProposalNotFound, id)
}

// Count returns the number of queued proposals.
func (q *ProposalQueue) Count() (int, error) {
	proposals, err := q.load()
	if err != nil {
		return 0, err
	}
	return len(proposals), nil
}

func (q *ProposalQueue) load() ([]Proposal, error) {
	data, err := os.ReadFile(q.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading proposals: %w", err)
	}
	var proposals []Proposal
	if err := json.Unmarshal(data, &proposals); err != nil {
		return nil, fmt.Errorf("parsing proposals: %w", err)
	}
	return proposals, nil
}

func (q *ProposalQueue) save(proposals []Proposal) error {
	if proposals == nil {
		proposals = []Proposal{}
	}
	data, err := json.MarshalIndent(proposals, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(q.path, data, 0o644)
}

package executor

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kortfolk/chronicle/internal/audit"
	"github.com/kortfolk/chronicle/internal/board"
	"github.com/kortfolk/chronicle/internal/reconcile"
)

// ErrPolicyViolation is returned when an approved action turns out to
// be on the deny list. Approval raises confidence, never policy.
var ErrPolicyViolation = errors.New("action type denied by policy")

// Result summarizes one execution pass over a plan.
type Result struct {
	Applied       int `json:"applied"`
	Deferred      int `json:"deferred"`
	DroppedPolicy int `json:"dropped_policy"`
	DroppedLow    int `json:"dropped_low_confidence"`
	Failed        int `json:"failed"`
	Conflicts     int `json:"conflicts"`
}

// Executor routes plan actions through the tier policy, performs the
// ones that clear it, and writes one audit entry per action. Deferred
// actions land in the proposals queue for a human to approve.
type Executor struct {
	ext       board.External
	audit     *audit.Store
	proposals *ProposalQueue
}

// New builds an executor over the external boundary, audit trail and
// proposal queue.
func New(ext board.External, auditStore *audit.Store, proposals *ProposalQueue) *Executor {
	return &Executor{ext: ext, audit: auditStore, proposals: proposals}
}

// Execute runs every action in the plan. Failures are isolated per
// action; an error applying one action is audited as failed and the
// pass continues. The returned error covers only infrastructure
// problems such as an unwritable audit log.
func (e *Executor) Execute(ctx context.Context, plan *reconcile.Plan) (Result, error) {
	var result Result

	for _, conflict := range plan.Conflicts {
		result.Conflicts++
		if err := e.audit.Log(audit.Entry{
			Action:   "conflict",
			Target:   conflict.Subject,
			Outcome:  audit.OutcomeConflictFlagged,
			Evidence: conflict.ArtifactTitle,
			Detail:   conflict.Description,
		}); err != nil {
			return result, fmt.Errorf("writing audit entry: %w", err)
		}
	}

	for _, action := range plan.Actions {
		if err := e.run(ctx, action, false, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ExecuteApproved performs a single previously deferred action. The
// approval overrides its confidence but never the policy tier.
func (e *Executor) ExecuteApproved(ctx context.Context, action reconcile.Action) (Result, error) {
	var result Result
	err := e.run(ctx, action, true, &result)
	if err == nil && result.DroppedPolicy > 0 {
		err = fmt.Errorf("%s: %w", action.Type, ErrPolicyViolation)
	}
	return result, err
}

func (e *Executor) run(ctx context.Context, action reconcile.Action, approved bool, result *Result) error {
	entry := audit.Entry{
		Action:     string(action.Type),
		Target:     action.TargetID,
		Confidence: string(action.Confidence),
		Evidence:   fmt.Sprintf("%s (session %s)", action.SourceArtifact, action.SourceSession),
		Detail:     action.Rationale,
	}
	if approved {
		entry.Actor = audit.ActorUser
		entry.Confidence = string(reconcile.ConfidenceHigh)
	}

	switch Classify(action, approved) {
	case TierDropPolicy:
		result.DroppedPolicy++
		entry.Outcome = audit.OutcomeDroppedPolicy

	case TierDropLowScore:
		result.DroppedLow++
		entry.Outcome = audit.OutcomeDroppedLowConfidence

	case TierDefer:
		if err := e.proposals.Add(action); err != nil {
			return fmt.Errorf("queueing proposal: %w", err)
		}
		result.Deferred++
		entry.Outcome = audit.OutcomeDeferred

	case TierApply:
		previous, err := e.apply(ctx, action)
		if err != nil {
			log.Printf("executor: %s %q failed: %v", action.Type, action.Title, err)
			result.Failed++
			entry.Outcome = audit.OutcomeFailed
			entry.Detail = err.Error()
		} else {
			result.Applied++
			entry.Outcome = audit.OutcomeApplied
			entry.PreviousValue = previous
		}
	}

	if err := e.audit.Log(entry); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// apply performs the mutation and returns the state it replaced.
func (e *Executor) apply(ctx context.Context, action reconcile.Action) (previous string, err error) {
	switch action.Type {
	case reconcile.ActionCreateItem:
		_, err := e.ext.CreateItem(ctx, action.Title, action.Content)
		return "", err

	case reconcile.ActionAppendNote:
		previous, err = e.itemStatus(ctx, action.TargetID)
		if err != nil {
			return "", err
		}
		return previous, e.ext.AppendNote(ctx, action.TargetID, action.Content)

	case reconcile.ActionMarkDone:
		previous, err = e.itemStatus(ctx, action.TargetID)
		if err != nil {
			return "", err
		}
		note := fmt.Sprintf("closed from session evidence: %s", action.Evidence)
		return previous, e.ext.MarkDone(ctx, action.TargetID, note)

	case reconcile.ActionCreateDoc:
		_, err := e.ext.CreateDoc(ctx, action.Section, action.Title, action.Content)
		return "", err

	case reconcile.ActionAppendDocSection:
		return "", e.ext.AppendDocSection(ctx, action.TargetID, action.Section, action.Content)

	case reconcile.ActionProposeFix:
		// A fix proposal is additive content, either on the matched
		// doc or as a fresh doc under fixes.
		if action.TargetID != "" {
			return "", e.ext.AppendDocSection(ctx, action.TargetID, action.Title, action.Content)
		}
		_, err := e.ext.CreateDoc(ctx, action.Section, action.Title, action.Content)
		return "", err

	default:
		return "", fmt.Errorf("unhandled action type %q", action.Type)
	}
}

// itemStatus reads the current status of an item so the audit entry
// can record what a mutation replaced.
func (e *Executor) itemStatus(ctx context.Context, itemID string) (string, error) {
	items, err := e.ext.ReadBoard(ctx)
	if err != nil {
		return "", err
	}
	for _, item := range items {
		if item.ID == itemID {
			return fmt.Sprintf("status=%s", item.Status), nil
		}
	}
	return "", fmt.Errorf("item %s not found", itemID)
}

package executor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kortfolk/chronicle/internal/audit"
	"github.com/kortfolk/chronicle/internal/board"
	"github.com/kortfolk/chronicle/internal/reconcile"
)

// fakeBoard records mutations and serves a fixed item list.
type fakeBoard struct {
	items    []board.Item
	calls    []string
	failNext bool
}

func (f *fakeBoard) ReadBoard(ctx context.Context) ([]board.Item, error)    { return f.items, nil }
func (f *fakeBoard) ReadDocsIndex(ctx context.Context) ([]board.Doc, error) { return nil, nil }

func (f *fakeBoard) CreateItem(ctx context.Context, title, note string) (string, error) {
	if f.failNext {
		f.failNext = false
		return "", context.DeadlineExceeded
	}
	f.calls = append(f.calls, "create_item:"+title)
	return "item-new", nil
}

func (f *fakeBoard) AppendNote(ctx context.Context, itemID, note string) error {
	f.calls = append(f.calls, "append_note:"+itemID)
	return nil
}

func (f *fakeBoard) MarkDone(ctx context.Context, itemID, note string) error {
	f.calls = append(f.calls, "mark_done:"+itemID)
	return nil
}

func (f *fakeBoard) CreateDoc(ctx context.Context, section, title, content string) (string, error) {
	f.calls = append(f.calls, "create_doc:"+title)
	return "doc-new", nil
}

func (f *fakeBoard) AppendDocSection(ctx context.Context, docID, heading, content string) error {
	f.calls = append(f.calls, "append_doc_section:"+docID)
	return nil
}

func setup(t *testing.T, ext *fakeBoard) (*Executor, *audit.Store, *ProposalQueue) {
	t.Helper()
	dir := t.TempDir()
	auditStore := audit.NewStore(filepath.Join(dir, "audit.jsonl"))
	queue := NewProposalQueue(dir)
	return New(ext, auditStore, queue), auditStore, queue
}

func action(typ reconcile.ActionType, confidence reconcile.Confidence) reconcile.Action {
	return reconcile.Action{
		Type:           typ,
		Title:          "test action",
		Content:        "content",
		Confidence:     confidence,
		SourceArtifact: "artifact",
		SourceSession:  "sess-1",
	}
}

func TestClassifyTiers(t *testing.T) {
	tests := []struct {
		name     string
		typ      reconcile.ActionType
		conf     reconcile.Confidence
		approved bool
		want     Tier
	}{
		{"high allowed applies", reconcile.ActionCreateItem, reconcile.ConfidenceHigh, false, TierApply},
		{"medium allowed defers", reconcile.ActionMarkDone, reconcile.ConfidenceMedium, false, TierDefer},
		{"low allowed drops", reconcile.ActionAppendNote, reconcile.ConfidenceLow, false, TierDropLowScore},
		{"denied drops even at high", "delete_item", reconcile.ConfidenceHigh, false, TierDropPolicy},
		{"denied drops even approved", "send_email", reconcile.ConfidenceHigh, true, TierDropPolicy},
		{"unknown type drops", "reboot_host", reconcile.ConfidenceHigh, false, TierDropPolicy},
		{"approval promotes medium", reconcile.ActionMarkDone, reconcile.ConfidenceMedium, true, TierApply},
		{"approval promotes low", reconcile.ActionAppendNote, reconcile.ConfidenceLow, true, TierApply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(action(tt.typ, tt.conf), tt.approved); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExecuteRoutesByConfidence(t *testing.T) {
	ext := &fakeBoard{items: []board.Item{{ID: "item-1", Title: "open work", Status: board.StatusOpen}}}
	exec, auditStore, queue := setup(t, ext)

	high := action(reconcile.ActionMarkDone, reconcile.ConfidenceHigh)
	high.TargetID = "item-1"

	plan := &reconcile.Plan{
		Actions: []reconcile.Action{
			high,
			action(reconcile.ActionCreateDoc, reconcile.ConfidenceMedium),
			action(reconcile.ActionAppendNote, reconcile.ConfidenceLow),
			action("delete_doc", reconcile.ConfidenceHigh),
		},
	}

	result, err := exec.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Applied != 1 || result.Deferred != 1 || result.DroppedLow != 1 || result.DroppedPolicy != 1 {
		t.Fatalf("result = %+v", result)
	}

	// The only mutation is the high-confidence mark_done.
	if len(ext.calls) != 1 || ext.calls[0] != "mark_done:item-1" {
		t.Fatalf("external calls = %v", ext.calls)
	}

	// Exactly one audit entry per action, drops included.
	count, err := auditStore.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 4 {
		t.Errorf("audit entries = %d, want 4", count)
	}

	pending, _ := queue.Pending()
	if len(pending) != 1 || pending[0].Action.Type != reconcile.ActionCreateDoc {
		t.Fatalf("queue = %+v", pending)
	}
}

func TestExecuteRecordsPreviousValue(t *testing.T) {
	ext := &fakeBoard{items: []board.Item{{ID: "item-1", Title: "open work", Status: board.StatusBlocked}}}
	exec, auditStore, _ := setup(t, ext)

	a := action(reconcile.ActionMarkDone, reconcile.ConfidenceHigh)
	a.TargetID = "item-1"

	if _, err := exec.Execute(context.Background(), &reconcile.Plan{Actions: []reconcile.Action{a}}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	entries, err := auditStore.Tail(1)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if entries[0].PreviousValue != "status=blocked" {
		t.Errorf("previous value = %q, want status=blocked", entries[0].PreviousValue)
	}
}

func TestExecuteFailureIsolated(t *testing.T) {
	ext := &fakeBoard{failNext: true}
	exec, auditStore, _ := setup(t, ext)

	plan := &reconcile.Plan{Actions: []reconcile.Action{
		action(reconcile.ActionCreateItem, reconcile.ConfidenceHigh),
		action(reconcile.ActionCreateDoc, reconcile.ConfidenceHigh),
	}}

	result, err := exec.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Failed != 1 || result.Applied != 1 {
		t.Fatalf("result = %+v", result)
	}

	failed, _ := auditStore.Query(audit.QueryFilter{Outcome: audit.OutcomeFailed})
	if len(failed) != 1 {
		t.Errorf("failed entries = %d, want 1", len(failed))
	}
}

func TestExecuteAuditsConflicts(t *testing.T) {
	exec, auditStore, _ := setup(t, &fakeBoard{})

	plan := &reconcile.Plan{Conflicts: []reconcile.Conflict{
		{ArtifactTitle: "a", Subject: "item-9", Description: "claims work undone"},
	}}

	result, err := exec.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Conflicts != 1 {
		t.Fatalf("result = %+v", result)
	}
	flagged, _ := auditStore.Query(audit.QueryFilter{Outcome: audit.OutcomeConflictFlagged})
	if len(flagged) != 1 {
		t.Errorf("flagged entries = %d, want 1", len(flagged))
	}
}

func TestApproveExecutesDeferred(t *testing.T) {
	ext := &fakeBoard{}
	exec, _, queue := setup(t, ext)

	plan := &reconcile.Plan{Actions: []reconcile.Action{
		action(reconcile.ActionCreateDoc, reconcile.ConfidenceMedium),
	}}
	if _, err := exec.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	pending, _ := queue.Pending()
	if len(pending) != 1 {
		t.Fatalf("queue = %+v", pending)
	}

	approved, err := queue.Approve(pending[0].ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Confidence != reconcile.ConfidenceHigh {
		t.Errorf("approved confidence = %s, want high", approved.Confidence)
	}

	result, err := exec.ExecuteApproved(context.Background(), approved)
	if err != nil {
		t.Fatalf("ExecuteApproved: %v", err)
	}
	if result.Applied != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(ext.calls) != 1 || ext.calls[0] != "create_doc:test action" {
		t.Errorf("external calls = %v", ext.calls)
	}

	if n, _ := queue.Count(); n != 0 {
		t.Errorf("queue count after approval = %d, want 0", n)
	}
}

func TestApproveNeverOverridesPolicy(t *testing.T) {
	ext := &fakeBoard{}
	exec, _, _ := setup(t, ext)

	denied := action("delete_item", reconcile.ConfidenceHigh)
	_, err := exec.ExecuteApproved(context.Background(), denied)
	if !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("err = %v, want ErrPolicyViolation", err)
	}
	if len(ext.calls) != 0 {
		t.Errorf("denied action mutated external state: %v", ext.calls)
	}
}

func TestDismissRemovesWithoutExecuting(t *testing.T) {
	ext := &fakeBoard{}
	exec, _, queue := setup(t, ext)

	plan := &reconcile.Plan{Actions: []reconcile.Action{
		action(reconcile.ActionAppendDocSection, reconcile.ConfidenceMedium),
	}}
	if _, err := exec.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	pending, _ := queue.Pending()
	if err := queue.Dismiss(pending[0].ID); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if len(ext.calls) != 0 {
		t.Errorf("dismiss mutated external state: %v", ext.calls)
	}
	if n, _ := queue.Count(); n != 0 {
		t.Errorf("queue count = %d, want 0", n)
	}
}

package session

import (
	"fmt"
	"testing"
)

func makeMessages(n int) []Message {
	out := make([]Message, n)
	for i := range out {
		out[i] = Message{Index: i, Role: "user", Content: fmt.Sprintf("msg %d", i)}
	}
	return out
}

func TestTrackerOffsetDefaultsToZero(t *testing.T) {
	tracker, err := LoadTracker(t.TempDir(), StageFacts)
	if err != nil {
		t.Fatalf("LoadTracker: %v", err)
	}
	if got := tracker.Offset("never-seen"); got != 0 {
		t.Errorf("Offset = %d, want 0", got)
	}
}

func TestTrackerAdvanceMonotonic(t *testing.T) {
	dir := t.TempDir()
	tracker, err := LoadTracker(dir, StageFacts)
	if err != nil {
		t.Fatalf("LoadTracker: %v", err)
	}

	if err := tracker.Advance("s1", 40); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	// Lower and equal values never move the offset back.
	if err := tracker.Advance("s1", 30); err != nil {
		t.Fatalf("Advance (lower): %v", err)
	}
	if err := tracker.Advance("s1", 40); err != nil {
		t.Fatalf("Advance (equal): %v", err)
	}
	if got := tracker.Offset("s1"); got != 40 {
		t.Errorf("Offset = %d, want 40", got)
	}

	// Offsets survive a reload.
	reloaded, err := LoadTracker(dir, StageFacts)
	if err != nil {
		t.Fatalf("LoadTracker (reload): %v", err)
	}
	if got := reloaded.Offset("s1"); got != 40 {
		t.Errorf("reloaded Offset = %d, want 40", got)
	}
}

func TestTrackerStagesIndependent(t *testing.T) {
	dir := t.TempDir()
	facts, _ := LoadTracker(dir, StageFacts)
	artifacts, _ := LoadTracker(dir, StageArtifacts)

	if err := facts.Advance("s1", 25); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got := artifacts.Offset("s1"); got != 0 {
		t.Errorf("artifact offset = %d, want 0; stages must not share state", got)
	}
}

func TestDeltaSplitsContextAndNew(t *testing.T) {
	tracker, _ := LoadTracker(t.TempDir(), StageFacts)
	messages := makeMessages(50)

	if err := tracker.Advance("s1", 40); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	d := tracker.Delta("s1", messages)
	if len(d.New) != 10 {
		t.Fatalf("new = %d, want 10", len(d.New))
	}
	if d.New[0].Index != 40 {
		t.Errorf("first new message index = %d, want 40", d.New[0].Index)
	}
	if len(d.Context) != DefaultContextWindow {
		t.Fatalf("context = %d, want %d", len(d.Context), DefaultContextWindow)
	}
	if d.Context[0].Index != 30 {
		t.Errorf("context starts at %d, want 30", d.Context[0].Index)
	}
	if d.NextOffset != 50 {
		t.Errorf("NextOffset = %d, want 50", d.NextOffset)
	}
}

func TestDeltaEmptyWhenFullyProcessed(t *testing.T) {
	tracker, _ := LoadTracker(t.TempDir(), StageFacts)
	messages := makeMessages(20)

	if err := tracker.Advance("s1", 20); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	d := tracker.Delta("s1", messages)
	if len(d.New) != 0 {
		t.Fatalf("rerun over a processed source must yield no new messages, got %d", len(d.New))
	}
}

func TestDeltaClampsTruncatedSource(t *testing.T) {
	tracker, _ := LoadTracker(t.TempDir(), StageFacts)
	if err := tracker.Advance("s1", 100); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	d := tracker.Delta("s1", makeMessages(20))
	if len(d.New) != 0 {
		t.Fatalf("offset beyond transcript should clamp, got %d new", len(d.New))
	}
}

func TestDeltaFirstRunTail(t *testing.T) {
	tracker, _ := LoadTracker(t.TempDir(), StageArtifacts)
	tracker.FirstRunTail = 50

	d := tracker.Delta("huge-session", makeMessages(300))
	if len(d.New) != 50 {
		t.Fatalf("first run should take the last 50 messages, got %d", len(d.New))
	}
	if d.New[0].Index != 250 {
		t.Errorf("first new index = %d, want 250", d.New[0].Index)
	}
	if d.NextOffset != 300 {
		t.Errorf("NextOffset = %d, want 300", d.NextOffset)
	}

	// Once an offset exists, the tail shortcut no longer applies.
	if err := tracker.Advance("huge-session", 300); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	d = tracker.Delta("huge-session", makeMessages(310))
	if len(d.New) != 10 {
		t.Fatalf("incremental run should see 10 new messages, got %d", len(d.New))
	}
}

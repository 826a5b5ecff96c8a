package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "audit.jsonl"))
}

func TestLogAppendsJSONL(t *testing.T) {
	store := setupStore(t)

	entries := []Entry{
		{Action: "create_item", Target: "t1", Outcome: OutcomeApplied, Confidence: "high"},
		{Action: "mark_done", Target: "t2", Outcome: OutcomeDeferred, Confidence: "medium"},
		{Action: "delete_item", Target: "t3", Outcome: OutcomeDroppedPolicy},
	}
	for _, e := range entries {
		if err := store.Log(e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("log lines = %d, want 3", len(lines))
	}
	// Each line is standalone JSON with stamped id and timestamp.
	for _, line := range lines {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Errorf("entry missing id or timestamp: %s", line)
		}
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)

	must := func(e Entry) {
		t.Helper()
		if err := store.Log(e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	must(Entry{Action: "create_item", Target: "alpha", Outcome: OutcomeApplied})
	must(Entry{Action: "create_item", Target: "beta", Outcome: OutcomeFailed})
	must(Entry{Action: "mark_done", Target: "alpha", Outcome: OutcomeApplied})

	byAction, err := store.Query(QueryFilter{Action: "create_item"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byAction) != 2 {
		t.Errorf("action filter = %d entries, want 2", len(byAction))
	}
	// Newest first.
	if byAction[0].Target != "beta" {
		t.Errorf("first entry target = %q, want beta", byAction[0].Target)
	}

	byOutcome, _ := store.Query(QueryFilter{Outcome: OutcomeApplied})
	if len(byOutcome) != 2 {
		t.Errorf("outcome filter = %d entries, want 2", len(byOutcome))
	}

	limited, _ := store.Query(QueryFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit = %d entries, want 1", len(limited))
	}
}

func TestQuerySinceWindow(t *testing.T) {
	store := setupStore(t)

	old := Entry{Action: "a", Outcome: OutcomeApplied, Timestamp: time.Now().UTC().Add(-48 * time.Hour)}
	if err := store.Log(old); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := store.Log(Entry{Action: "b", Outcome: OutcomeApplied}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	since := time.Now().UTC().Add(-time.Hour)
	recent, err := store.Query(QueryFilter{Since: &since})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recent) != 1 || recent[0].Action != "b" {
		t.Fatalf("since filter = %+v, want only the fresh entry", recent)
	}
}

func TestTail(t *testing.T) {
	store := setupStore(t)
	for _, action := range []string{"one", "two", "three"} {
		if err := store.Log(Entry{Action: action, Outcome: OutcomeApplied}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tail, err := store.Tail(2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(tail) != 2 || tail[0].Action != "two" || tail[1].Action != "three" {
		t.Fatalf("tail = %+v", tail)
	}
}

func TestToleratesTornFinalLine(t *testing.T) {
	store := setupStore(t)
	if err := store.Log(Entry{Action: "ok", Outcome: OutcomeApplied}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	f, err := os.OpenFile(store.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString(`{"id":"torn","action":"cras`)
	f.Close()

	entries, err := store.Tail(0)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1 (torn line skipped)", len(entries))
	}
}

func TestQueryRoute(t *testing.T) {
	store := setupStore(t)
	if err := store.Log(Entry{Action: "create_item", Target: "t1", Outcome: OutcomeApplied}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/audit?outcome=applied", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(entries) != 1 || entries[0].Target != "t1" {
		t.Fatalf("entries = %+v", entries)
	}
}

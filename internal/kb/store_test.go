package kb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kortfolk/chronicle/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWriteFactSupersession(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.UpsertEntity(ctx, "Dana", EntityPerson)
	if err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	first, changed, err := store.WriteFact(ctx, id, "role", "engineer", "session-1", day("2026-01-10"))
	if err != nil {
		t.Fatalf("WriteFact: %v", err)
	}
	if !changed {
		t.Error("first write should report changed")
	}

	second, changed, err := store.WriteFact(ctx, id, "role", "tech lead", "session-2", day("2026-03-01"))
	if err != nil {
		t.Fatalf("WriteFact (supersede): %v", err)
	}
	if !changed {
		t.Error("superseding write should report changed")
	}
	if second == first {
		t.Error("superseding write should create a new fact id")
	}

	current, err := store.CurrentFacts(ctx, id)
	if err != nil {
		t.Fatalf("CurrentFacts: %v", err)
	}
	if len(current) != 1 {
		t.Fatalf("expected exactly one current fact, got %d", len(current))
	}
	if current[0].Value != "tech lead" {
		t.Errorf("current value = %q, want %q", current[0].Value, "tech lead")
	}

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 facts in history, got %d", len(history))
	}
	old := history[0]
	if old.ValidTo == nil {
		t.Fatal("superseded fact should have valid_to set")
	}
	if got := old.ValidTo.Format(DateLayout); got != "2026-03-01" {
		t.Errorf("old fact valid_to = %s, want 2026-03-01", got)
	}
	if old.SupersededBy != second {
		t.Errorf("old fact superseded_by = %q, want %q", old.SupersededBy, second)
	}
}

func TestWriteFactIdempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.UpsertEntity(ctx, "atlas", EntityProject)
	if err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	first, _, err := store.WriteFact(ctx, id, "status", "active", "s1", day("2026-02-01"))
	if err != nil {
		t.Fatalf("WriteFact: %v", err)
	}

	again, changed, err := store.WriteFact(ctx, id, "status", "active", "s2", day("2026-02-15"))
	if err != nil {
		t.Fatalf("WriteFact (rewrite): %v", err)
	}
	if changed {
		t.Error("same-value rewrite should be a no-op")
	}
	if again != first {
		t.Errorf("rewrite returned %q, want existing fact id %q", again, first)
	}

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("rewrite must not grow history, got %d facts", len(history))
	}
}

func TestWriteFactUnknownEntity(t *testing.T) {
	store := setupStore(t)

	_, _, err := store.WriteFact(context.Background(), "nope1234", "role", "x", "", time.Now())
	if !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestUpsertEntityMatching(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.UpsertEntity(ctx, "Project Atlas", EntityProject)
	if err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	exact, err := store.UpsertEntity(ctx, "project atlas", EntityProject)
	if err != nil {
		t.Fatalf("UpsertEntity (case): %v", err)
	}
	if exact != id {
		t.Error("case-insensitive exact match should reuse the entity")
	}

	fuzzy, err := store.UpsertEntity(ctx, "project-atlas", EntityProject)
	if err != nil {
		t.Fatalf("UpsertEntity (fuzzy): %v", err)
	}
	if fuzzy != id {
		t.Error("separator variant should reuse the entity")
	}

	other, err := store.UpsertEntity(ctx, "billing service", EntityProject)
	if err != nil {
		t.Fatalf("UpsertEntity (distinct): %v", err)
	}
	if other == id {
		t.Error("unrelated name must create a new entity")
	}
}

func TestRelationSupersessionAndEnd(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	dana, _ := store.UpsertEntity(ctx, "Dana", EntityPerson)
	atlas, _ := store.UpsertEntity(ctx, "Atlas", EntityProject)

	relID, changed, err := store.WriteRelation(ctx, dana, "works_on", atlas, day("2026-01-01"))
	if err != nil {
		t.Fatalf("WriteRelation: %v", err)
	}
	if !changed {
		t.Error("first relation write should report changed")
	}

	dup, changed, err := store.WriteRelation(ctx, dana, "works_on", atlas, day("2026-02-01"))
	if err != nil {
		t.Fatalf("WriteRelation (dup): %v", err)
	}
	if changed || dup != relID {
		t.Error("identical current edge should be a no-op")
	}

	if err := store.EndRelation(ctx, dana, "works_on", atlas, day("2026-04-01")); err != nil {
		t.Fatalf("EndRelation: %v", err)
	}
	relations, err := store.CurrentRelations(ctx, dana)
	if err != nil {
		t.Fatalf("CurrentRelations: %v", err)
	}
	if len(relations) != 0 {
		t.Fatalf("expected no current relations after end, got %d", len(relations))
	}

	err = store.EndRelation(ctx, dana, "works_on", atlas, day("2026-04-02"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ending an ended relation: expected ErrNotFound, got %v", err)
	}
}

func TestDecisionTransitions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first, err := store.WriteDecision(ctx, "Use Postgres", "team knows it", "", day("2026-01-05"))
	if err != nil {
		t.Fatalf("WriteDecision: %v", err)
	}
	second, err := store.WriteDecision(ctx, "Use SQLite", "simpler ops", "", day("2026-02-05"))
	if err != nil {
		t.Fatalf("WriteDecision: %v", err)
	}

	if err := store.SupersedeDecision(ctx, first, second); err != nil {
		t.Fatalf("SupersedeDecision: %v", err)
	}
	d, err := store.GetDecision(ctx, first)
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if d.Status != DecisionSuperseded || d.SupersededBy != second {
		t.Errorf("decision = %s/%s, want superseded/%s", d.Status, d.SupersededBy, second)
	}

	// Transitions are forward-only.
	if err := store.ReverseDecision(ctx, first); err == nil {
		t.Error("reversing a superseded decision should fail")
	}

	active, err := store.ListDecisions(ctx, false)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(active) != 1 || active[0].ID != second {
		t.Fatalf("expected only the superseding decision active, got %d", len(active))
	}
}

func TestRecentDecisionsWindow(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.WriteDecision(ctx, "old", "", "", day("2026-01-01")); err != nil {
		t.Fatalf("WriteDecision: %v", err)
	}
	if _, err := store.WriteDecision(ctx, "new", "", "", day("2026-03-01")); err != nil {
		t.Fatalf("WriteDecision: %v", err)
	}

	recent, err := store.RecentDecisions(ctx, day("2026-02-01"))
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(recent) != 1 || recent[0].Title != "new" {
		t.Fatalf("expected only the new decision, got %d", len(recent))
	}
}

func TestSearchAcrossKinds(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, _ := store.UpsertEntity(ctx, "checkout service", EntityProject)
	if _, _, err := store.WriteFact(ctx, id, "language", "Go with chi router", "s1", day("2026-01-01")); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}
	if _, err := store.WriteDecision(ctx, "Adopt chi for routing", "", "", day("2026-01-02")); err != nil {
		t.Fatalf("WriteDecision: %v", err)
	}

	results, err := store.Search(ctx, "chi")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results.Facts) != 1 {
		t.Errorf("fact hits = %d, want 1", len(results.Facts))
	}
	if len(results.Decisions) != 1 {
		t.Errorf("decision hits = %d, want 1", len(results.Decisions))
	}
	if results.Facts[0].EntityName != "checkout service" {
		t.Errorf("fact hit entity = %q", results.Facts[0].EntityName)
	}
}

func TestDomainsAndSubgraph(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, _ := store.UpsertEntity(ctx, "ledger", EntityProject)
	other, _ := store.UpsertEntity(ctx, "mascot", EntityConcept)
	if _, _, err := store.WriteFact(ctx, id, "status", "live", "s", day("2026-01-01")); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}

	if err := store.AssignDomain(ctx, id, "finance", 0.9, ProvenanceManual); err != nil {
		t.Fatalf("AssignDomain: %v", err)
	}
	// Lower-confidence reassignment must not lower the stored value.
	if err := store.AssignDomain(ctx, id, "finance", 0.4, ProvenanceExtraction); err != nil {
		t.Fatalf("AssignDomain (again): %v", err)
	}
	domains, err := store.Domains(ctx, id)
	if err != nil {
		t.Fatalf("Domains: %v", err)
	}
	if len(domains) != 1 || domains[0].Confidence != 0.9 {
		t.Fatalf("domains = %+v, want one at 0.9", domains)
	}

	sg, err := store.Subgraph(ctx, "finance")
	if err != nil {
		t.Fatalf("Subgraph: %v", err)
	}
	if len(sg.Entities) != 1 || sg.Entities[0].Entity.ID != id {
		t.Fatalf("subgraph should contain only the finance entity")
	}
	_ = other

	primary, err := store.PrimaryDomain(ctx, other)
	if err != nil {
		t.Fatalf("PrimaryDomain: %v", err)
	}
	if primary != "general" {
		t.Errorf("unassigned entity primary domain = %q, want general", primary)
	}
}

func TestAssignDomainsFromSources(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, _ := store.UpsertEntity(ctx, "payments", EntityProject)
	if _, _, err := store.WriteFact(ctx, id, "status", "live", "work/payments/session-1", day("2026-01-01")); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}

	n, err := store.AssignDomainsFromSources(ctx, []DomainRule{
		{Domain: "finance", Patterns: []string{"work/payments"}},
		{Domain: "personal", Patterns: []string{"home/"}},
	})
	if err != nil {
		t.Fatalf("AssignDomainsFromSources: %v", err)
	}
	if n != 1 {
		t.Fatalf("assignments = %d, want 1", n)
	}
	domains, _ := store.Domains(ctx, id)
	if len(domains) != 1 || domains[0].Domain != "finance" || domains[0].Provenance != ProvenanceMigration {
		t.Fatalf("domains = %+v", domains)
	}
}

func TestAttributeExpected(t *testing.T) {
	tests := []struct {
		entityType EntityType
		attribute  string
		want       bool
	}{
		{EntityPerson, "role", true},
		{EntityPerson, "favorite_color", false},
		{EntityProject, "deadline", true},
		{EntityConcept, "anything_at_all", true},
	}
	for _, tt := range tests {
		if got := AttributeExpected(tt.entityType, tt.attribute); got != tt.want {
			t.Errorf("AttributeExpected(%s, %s) = %v, want %v", tt.entityType, tt.attribute, got, tt.want)
		}
	}
}

func TestRelationWriteBumpsEntities(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	from, err := store.UpsertEntity(ctx, "Dana", EntityPerson)
	if err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	to, err := store.UpsertEntity(ctx, "atlas", EntityProject)
	if err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	// Age both rows so the bump is observable at second granularity.
	ageEntities := func() {
		t.Helper()
		for _, id := range []string{from, to} {
			if _, err := store.db.ExecContext(ctx,
				`UPDATE entities SET updated_at = '2020-01-01 00:00:00' WHERE id = ?`, id); err != nil {
				t.Fatalf("aging entity: %v", err)
			}
		}
	}
	checkBumped := func(op string) {
		t.Helper()
		for _, id := range []string{from, to} {
			e, err := store.GetEntity(ctx, id)
			if err != nil {
				t.Fatalf("GetEntity: %v", err)
			}
			if e.UpdatedAt.Year() == 2020 {
				t.Errorf("%s left entity %s updated_at stale", op, e.Name)
			}
		}
	}

	ageEntities()
	if _, _, err := store.WriteRelation(ctx, from, "works_on", to, day("2026-02-01")); err != nil {
		t.Fatalf("WriteRelation: %v", err)
	}
	checkBumped("WriteRelation")

	ageEntities()
	if err := store.EndRelation(ctx, from, "works_on", to, day("2026-03-01")); err != nil {
		t.Fatalf("EndRelation: %v", err)
	}
	checkBumped("EndRelation")
}

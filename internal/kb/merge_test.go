package kb

import (
	"context"
	"testing"
)

func TestFindDuplicates(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// CreateEntity bypasses upsert matching, so variants can coexist.
	if _, err := store.CreateEntity(ctx, "Project Atlas", EntityProject); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if _, err := store.CreateEntity(ctx, "project-atlas", EntityProject); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if _, err := store.CreateEntity(ctx, "billing", EntityProject); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	dupes, err := store.FindDuplicates(ctx)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	if len(dupes) != 1 {
		t.Fatalf("duplicate sets = %d, want 1", len(dupes))
	}
	if dupes[0].Normalized != "project atlas" || len(dupes[0].Entities) != 2 {
		t.Fatalf("unexpected set %+v", dupes[0])
	}
}

func TestMergeEntities(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	keep, _ := store.CreateEntity(ctx, "Project Atlas", EntityProject)
	merge, _ := store.CreateEntity(ctx, "project-atlas", EntityProject)
	dana, _ := store.CreateEntity(ctx, "Dana", EntityPerson)

	// Colliding current attribute: the kept entity's value wins.
	if _, _, err := store.WriteFact(ctx, keep, "status", "active", "s1", day("2026-01-01")); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}
	if _, _, err := store.WriteFact(ctx, merge, "status", "paused", "s2", day("2026-01-02")); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}
	// Non-colliding attribute moves across intact.
	if _, _, err := store.WriteFact(ctx, merge, "owner", "platform", "s2", day("2026-01-02")); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}
	if _, _, err := store.WriteRelation(ctx, dana, "works_on", merge, day("2026-01-03")); err != nil {
		t.Fatalf("WriteRelation: %v", err)
	}
	if err := store.AssignDomain(ctx, merge, "infra", 0.8, ProvenanceExtraction); err != nil {
		t.Fatalf("AssignDomain: %v", err)
	}

	if err := store.MergeEntities(ctx, keep, merge); err != nil {
		t.Fatalf("MergeEntities: %v", err)
	}

	if _, err := store.GetEntity(ctx, merge); err == nil {
		t.Error("merged entity should be gone")
	}

	current, err := store.CurrentFacts(ctx, keep)
	if err != nil {
		t.Fatalf("CurrentFacts: %v", err)
	}
	byAttr := make(map[string]string)
	for _, f := range current {
		byAttr[f.Attribute] = f.Value
	}
	if byAttr["status"] != "active" {
		t.Errorf("status = %q, want the kept entity's value", byAttr["status"])
	}
	if byAttr["owner"] != "platform" {
		t.Errorf("owner = %q, want platform", byAttr["owner"])
	}

	history, _ := store.History(ctx, keep)
	if len(history) != 3 {
		t.Errorf("history = %d facts, want 3 (nothing deleted)", len(history))
	}

	relations, _ := store.CurrentRelations(ctx, keep)
	if len(relations) != 1 || relations[0].ToID != keep {
		t.Fatalf("relations = %+v, want one pointing at the kept entity", relations)
	}

	domains, _ := store.Domains(ctx, keep)
	if len(domains) != 1 || domains[0].Domain != "infra" {
		t.Fatalf("domains = %+v", domains)
	}
}

func TestMergeSelfRejected(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	id, _ := store.CreateEntity(ctx, "solo", EntityConcept)
	if err := store.MergeEntities(ctx, id, id); err == nil {
		t.Fatal("self-merge must be rejected")
	}
}

func TestPruneOrphans(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	orphan, _ := store.CreateEntity(ctx, "mentioned once", EntityConcept)
	kept, _ := store.CreateEntity(ctx, "has facts", EntityConcept)
	if _, _, err := store.WriteFact(ctx, kept, "note", "something", "s", day("2026-01-01")); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}

	n, err := store.PruneOrphans(ctx)
	if err != nil {
		t.Fatalf("PruneOrphans: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned = %d, want 1", n)
	}
	if _, err := store.GetEntity(ctx, orphan); err == nil {
		t.Error("orphan should be deleted")
	}
	if _, err := store.GetEntity(ctx, kept); err != nil {
		t.Errorf("entity with facts should survive: %v", err)
	}
}

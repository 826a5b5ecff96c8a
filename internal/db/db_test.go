package db

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	tables := []string{"entities", "entity_domains", "facts", "relations", "decisions"}
	for _, table := range tables {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chronicle.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer d.Close()
	if d.Path() != path {
		t.Errorf("Path() = %q, want %q", d.Path(), path)
	}
}

func TestCurrentFactIndexUnique(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(`INSERT INTO entities (id, name, type) VALUES ('e1', 'x', 'concept')`); err != nil {
		t.Fatalf("insert entity: %v", err)
	}
	if _, err := d.Exec(`INSERT INTO facts (id, entity_id, attribute, value, valid_from) VALUES ('f1', 'e1', 'a', 'v1', '2026-01-01')`); err != nil {
		t.Fatalf("insert fact: %v", err)
	}
	// A second open fact for the same (entity, attribute) violates the
	// partial unique index.
	if _, err := d.Exec(`INSERT INTO facts (id, entity_id, attribute, value, valid_from) VALUES ('f2', 'e1', 'a', 'v2', '2026-01-02')`); err == nil {
		t.Fatal("expected unique violation for a second current fact")
	}
}

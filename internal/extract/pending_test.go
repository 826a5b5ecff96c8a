package extract

import (
	"testing"
	"time"
)

func sampleArtifact(title string) Artifact {
	return Artifact{
		Type:          ArtifactPlan,
		Title:         title,
		Summary:       "s",
		Content:       "c",
		Domain:        "general",
		SourceSession: "s1",
		ExtractedAt:   time.Now().UTC(),
	}
}

func TestPendingQueueAppendLoad(t *testing.T) {
	q := NewPendingQueue(t.TempDir())

	loaded, err := q.Load()
	if err != nil {
		t.Fatalf("Load (empty): %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("fresh queue should be empty, got %d", len(loaded))
	}

	if err := q.Append([]Artifact{sampleArtifact("a"), sampleArtifact("b")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := q.Append([]Artifact{sampleArtifact("c")}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	loaded, err = q.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("queue = %d artifacts, want 3", len(loaded))
	}
	if loaded[2].Title != "c" {
		t.Errorf("appends should preserve order, got %q last", loaded[2].Title)
	}
}

func TestPendingQueueArchive(t *testing.T) {
	dir := t.TempDir()
	q := NewPendingQueue(dir)

	if err := q.Append([]Artifact{sampleArtifact("a")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := q.Archive(); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	loaded, _ := q.Load()
	if len(loaded) != 0 {
		t.Fatalf("queue should be empty after archive, got %d", len(loaded))
	}

	archived, err := readArtifactFile(q.archivePath)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(archived) != 1 || archived[0].Title != "a" {
		t.Fatalf("archive = %+v", archived)
	}

	// Archiving again accumulates rather than overwrites.
	if err := q.Append([]Artifact{sampleArtifact("b")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := q.Archive(); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	archived, _ = readArtifactFile(q.archivePath)
	if len(archived) != 2 {
		t.Fatalf("archive = %d artifacts, want 2", len(archived))
	}
}

package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PendingQueue is the durable hand-off between artifact extraction and
// reconciliation: a JSON file artifacts accumulate in until a
// reconciliation run consumes and archives them.
type PendingQueue struct {
	path        string
	archivePath string
}

// NewPendingQueue creates a queue stored under dir.
func NewPendingQueue(dir string) *PendingQueue {
	return &PendingQueue{
		path:        filepath.Join(dir, "pending-artifacts.json"),
		archivePath: filepath.Join(dir, "artifacts-archive.json"),
	}
}

// Load returns the queued artifacts, empty when the file is missing.
func (q *PendingQueue) Load() ([]Artifact, error) {
	return readArtifactFile(q.path)
}

// Append adds artifacts to the queue.
func (q *PendingQueue) Append(artifacts []Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	existing, err := q.Load()
	if err != nil {
		return err
	}
	return writeArtifactFile(q.path, append(existing, artifacts...))
}

// Count returns the queue length.
func (q *PendingQueue) Count() (int, error) {
	artifacts, err := q.Load()
	if err != nil {
		return 0, err
	}
	return len(artifacts), nil
}

// Archive moves the queue's contents to the archive file and empties
// the queue. Consumed artifacts are kept, not deleted.
func (q *PendingQueue) Archive() error {
	pending, err := q.Load()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	archived, err := readArtifactFile(q.archivePath)
	if err != nil {
		return err
	}
	if err := writeArtifactFile(q.archivePath, append(archived, pending...)); err != nil {
		return fmt.Errorf("archiving artifacts: %w", err)
	}
	return writeArtifactFile(q.path, nil)
}

func readArtifactFile(path string) ([]Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var artifacts []Artifact
	if err := json.Unmarshal(data, &artifacts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return artifacts, nil
}

func writeArtifactFile(path string, artifacts []Artifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if artifacts == nil {
		artifacts = []Artifact{}
	}
	data, err := json.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

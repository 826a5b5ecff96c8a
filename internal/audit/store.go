package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is an append-only JSONL audit log. Entries are only ever
// appended; nothing rewrites or truncates the file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store writing to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the log file location.
func (s *Store) Path() string { return s.path }

// Log appends an entry. If the entry's ID is empty a UUID is
// generated; a zero timestamp is stamped with the current time.
func (s *Store) Log(entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Actor == "" {
		entry.Actor = ActorPipeline
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling audit entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return f.Sync()
}

// QueryFilter controls which audit entries are returned by Query.
type QueryFilter struct {
	Action  string
	Outcome Outcome
	Target  string
	Since   *time.Time
	Until   *time.Time
	Limit   int
}

// Query returns matching entries, newest first.
func (s *Store) Query(filter QueryFilter) ([]Entry, error) {
	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var out []Entry
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Outcome != "" && e.Outcome != filter.Outcome {
			continue
		}
		if filter.Target != "" && !strings.Contains(e.Target, filter.Target) {
			continue
		}
		if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && e.Timestamp.After(*filter.Until) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Tail returns the last n entries in log order.
func (s *Store) Tail(n int) ([]Entry, error) {
	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Count returns the total number of entries.
func (s *Store) Count() (int, error) {
	entries, err := s.readAll()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *Store) readAll() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []Entry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			// A torn final line from a crash is tolerated; anything
			// else in the middle of the log is not.
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return entries, nil
}

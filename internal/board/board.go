package board

import (
	"context"
	"time"
)

// Item is a work item on the external board.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Notes     []string  `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Open reports whether the item is still actionable.
func (i Item) Open() bool { return i.Status != StatusDone }

// Item statuses as the board reports them.
const (
	StatusOpen    = "open"
	StatusBlocked = "blocked"
	StatusDone    = "done"
)

// Doc is an entry in the external documentation index.
type Doc struct {
	ID        string    `json:"id"`
	Section   string    `json:"section"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Snapshot is a point-in-time read of the external state. It is taken
// fresh for every reconciliation run and never cached across runs.
type Snapshot struct {
	Items     []Item    `json:"items"`
	Docs      []Doc     `json:"docs"`
	FetchedAt time.Time `json:"fetched_at"`
}

// External is the system-of-record boundary: the board and docs the
// pipeline reads from and writes to. All mutations available to the
// pipeline are additive or status changes; nothing here deletes.
type External interface {
	ReadBoard(ctx context.Context) ([]Item, error)
	ReadDocsIndex(ctx context.Context) ([]Doc, error)

	CreateItem(ctx context.Context, title, note string) (string, error)
	AppendNote(ctx context.Context, itemID, note string) error
	MarkDone(ctx context.Context, itemID, note string) error

	CreateDoc(ctx context.Context, section, title, content string) (string, error)
	AppendDocSection(ctx context.Context, docID, heading, content string) error
}

// TakeSnapshot reads board and docs in one pass.
func TakeSnapshot(ctx context.Context, ext External) (*Snapshot, error) {
	items, err := ext.ReadBoard(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := ext.ReadDocsIndex(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Items: items, Docs: docs, FetchedAt: time.Now().UTC()}, nil
}

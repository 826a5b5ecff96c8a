package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kortfolk/chronicle/internal/board"
	"github.com/kortfolk/chronicle/internal/kb"
)

// DefaultFrameTTL is how long a rendered context frame stays fresh.
const DefaultFrameTTL = 15 * time.Minute

// FrameBuilder renders a compact markdown picture of current external
// and stored state for the artifact extractor. The render is cached on
// disk with a TTL since board reads are comparatively expensive and
// extraction runs in bursts.
type FrameBuilder struct {
	ext   board.External
	store *kb.Store
	path  string

	// TTL overrides DefaultFrameTTL when positive.
	TTL time.Duration
}

// NewFrameBuilder creates a builder caching under dir.
func NewFrameBuilder(ext board.External, store *kb.Store, dir string) *FrameBuilder {
	return &FrameBuilder{
		ext:   ext,
		store: store,
		path:  filepath.Join(dir, "context-frame.md"),
	}
}

// Build returns the context frame, re-rendering when the cache is
// stale or missing. A nil external boundary yields a store-only frame.
func (f *FrameBuilder) Build(ctx context.Context) (string, error) {
	ttl := f.TTL
	if ttl <= 0 {
		ttl = DefaultFrameTTL
	}
	if info, err := os.Stat(f.path); err == nil && time.Since(info.ModTime()) < ttl {
		data, err := os.ReadFile(f.path)
		if err == nil {
			return string(data), nil
		}
	}

	frame, err := f.render(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err == nil {
		_ = os.WriteFile(f.path, []byte(frame), 0o644)
	}
	return frame, nil
}

func (f *FrameBuilder) render(ctx context.Context) (string, error) {
	var sb strings.Builder
	sb.WriteString("# Workspace context\n\n")

	if f.ext != nil {
		snap, err := board.TakeSnapshot(ctx, f.ext)
		if err != nil {
			return "", fmt.Errorf("reading external state for frame: %w", err)
		}
		sb.WriteString("## Open board items\n")
		open := 0
		for _, item := range snap.Items {
			if !item.Open() {
				continue
			}
			fmt.Fprintf(&sb, "- [%s] %s (%s)\n", item.ID, item.Title, item.Status)
			open++
		}
		if open == 0 {
			sb.WriteString("(none)\n")
		}
		sb.WriteString("\n## Docs index\n")
		if len(snap.Docs) == 0 {
			sb.WriteString("(none)\n")
		}
		for _, doc := range snap.Docs {
			fmt.Fprintf(&sb, "- [%s] %s / %s\n", doc.ID, doc.Section, doc.Title)
		}
		sb.WriteString("\n")
	}

	decisions, err := f.store.RecentDecisions(ctx, time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		return "", fmt.Errorf("reading recent decisions for frame: %w", err)
	}
	sb.WriteString("## Recent decisions\n")
	if len(decisions) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, d := range decisions {
		fmt.Fprintf(&sb, "- %s [%s] %s\n", d.DecidedAt.Format(kb.DateLayout), d.Status, d.Title)
	}

	stats, err := f.store.Stats(ctx)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&sb, "\n## Knowledge base\n%d entities, %d current facts, %d active decisions\n",
		stats.Entities, stats.CurrentFacts, stats.ActiveDecisions)

	return sb.String(), nil
}

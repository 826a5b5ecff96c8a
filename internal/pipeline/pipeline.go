// Package pipeline wires extraction, reconciliation and execution into
// the runs the CLI exposes. Offsets advance only after a batch fully
// succeeds, so a failed model call replays the same messages next run
// instead of losing them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kortfolk/chronicle/internal/brief"
	"github.com/kortfolk/chronicle/internal/executor"
	"github.com/kortfolk/chronicle/internal/extract"
	"github.com/kortfolk/chronicle/internal/kb"
	"github.com/kortfolk/chronicle/internal/reconcile"
	"github.com/kortfolk/chronicle/internal/session"
)

// ArtifactFirstRunTail bounds the first artifact pass over a source to
// its most recent messages; old transcripts are backfilled explicitly,
// not swept up by accident.
const ArtifactFirstRunTail = 50

// Pipeline holds the components a run needs. Fields left nil disable
// the corresponding side effect: a nil Projector skips briefing
// regeneration, a nil Reconciler disables RunReconciliation.
type Pipeline struct {
	Store      *kb.Store
	Writer     *kb.Writer
	Facts      *extract.Extractor
	Artifacts  *extract.ArtifactExtractor
	Frame      *extract.FrameBuilder
	Queue      *extract.PendingQueue
	Reconciler *reconcile.Reconciler
	Executor   *executor.Executor
	Projector  *brief.Projector

	// DataDir holds offset files and the generated briefing.
	DataDir string

	// ContextWindow overrides the tracker default when positive.
	ContextWindow int
}

// FactRunStats summarizes one fact-extraction pass.
type FactRunStats struct {
	Sources      int
	Skipped      int
	Failed       int
	FactsWritten int
	Decisions    int
}

// RunFactExtraction processes new messages from each transcript into
// the store. Per-source failures are logged and skipped; the source's
// offset stays put and the batch replays next run.
func (p *Pipeline) RunFactExtraction(ctx context.Context, paths []string) (FactRunStats, error) {
	var stats FactRunStats

	tracker, err := session.LoadTracker(p.DataDir, session.StageFacts)
	if err != nil {
		return stats, err
	}
	if p.ContextWindow > 0 {
		tracker.ContextWindow = p.ContextWindow
	}

	changed := false
	for _, path := range paths {
		sourceID := session.SourceID(path)
		messages, err := session.ParseSession(path)
		if err != nil {
			log.Printf("pipeline: skipping %s: %v", sourceID, err)
			stats.Failed++
			continue
		}

		delta := tracker.Delta(sourceID, messages)
		if len(delta.New) == 0 {
			stats.Skipped++
			continue
		}
		stats.Sources++

		known, err := p.Store.Subgraph(ctx, "")
		if err != nil {
			return stats, fmt.Errorf("loading known context: %w", err)
		}

		proposal, err := p.Facts.Extract(ctx, delta, known)
		if errors.Is(err, extract.ErrEmptyInput) {
			if err := tracker.Advance(sourceID, delta.NextOffset); err != nil {
				return stats, err
			}
			continue
		}
		if err != nil {
			log.Printf("pipeline: extraction failed for %s, offset kept: %v", sourceID, err)
			stats.Failed++
			continue
		}

		applied, err := p.Writer.Apply(ctx, proposal, sourceID, time.Now().UTC())
		if err != nil {
			log.Printf("pipeline: apply failed for %s, offset kept: %v", sourceID, err)
			stats.Failed++
			continue
		}
		stats.FactsWritten += applied.FactsWritten
		stats.Decisions += applied.Decisions
		if applied.Changed() {
			changed = true
		}

		// The offset moves only now, with extraction and application
		// both done.
		if err := tracker.Advance(sourceID, delta.NextOffset); err != nil {
			return stats, err
		}
	}

	if changed && p.Projector != nil {
		if err := p.Projector.Write(ctx, p.DataDir); err != nil {
			return stats, fmt.Errorf("regenerating briefing: %w", err)
		}
	}
	return stats, nil
}

// ArtifactRunStats summarizes one artifact-extraction pass.
type ArtifactRunStats struct {
	Sources   int
	Skipped   int
	Failed    int
	Artifacts int
}

// RunArtifactExtraction lifts work products from new messages into the
// pending queue for the next reconciliation run.
func (p *Pipeline) RunArtifactExtraction(ctx context.Context, paths []string) (ArtifactRunStats, error) {
	var stats ArtifactRunStats

	tracker, err := session.LoadTracker(p.DataDir, session.StageArtifacts)
	if err != nil {
		return stats, err
	}
	tracker.FirstRunTail = ArtifactFirstRunTail
	if p.ContextWindow > 0 {
		tracker.ContextWindow = p.ContextWindow
	}

	frame := ""
	if p.Frame != nil {
		frame, err = p.Frame.Build(ctx)
		if err != nil {
			log.Printf("pipeline: context frame unavailable: %v", err)
		}
	}

	for _, path := range paths {
		sourceID := session.SourceID(path)
		messages, err := session.ParseSession(path)
		if err != nil {
			log.Printf("pipeline: skipping %s: %v", sourceID, err)
			stats.Failed++
			continue
		}

		delta := tracker.Delta(sourceID, messages)
		if len(delta.New) == 0 {
			stats.Skipped++
			continue
		}
		stats.Sources++

		artifacts, err := p.Artifacts.Extract(ctx, delta, frame, sourceID)
		if errors.Is(err, extract.ErrEmptyInput) {
			if err := tracker.Advance(sourceID, delta.NextOffset); err != nil {
				return stats, err
			}
			continue
		}
		if err != nil {
			log.Printf("pipeline: artifact extraction failed for %s, offset kept: %v", sourceID, err)
			stats.Failed++
			continue
		}

		if err := p.Queue.Append(artifacts); err != nil {
			return stats, fmt.Errorf("queueing artifacts from %s: %w", sourceID, err)
		}
		stats.Artifacts += len(artifacts)

		if err := tracker.Advance(sourceID, delta.NextOffset); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// ReconcileStats pairs the plan with the execution result.
type ReconcileStats struct {
	Pending int
	Plan    *reconcile.Plan
	Result  executor.Result
}

// RunReconciliation drains the pending queue through reconciliation
// and execution, archiving the consumed artifacts afterwards. The
// queue survives intact when anything fails, so the batch is retried
// rather than lost.
func (p *Pipeline) RunReconciliation(ctx context.Context) (ReconcileStats, error) {
	var stats ReconcileStats

	pending, err := p.Queue.Load()
	if err != nil {
		return stats, err
	}
	stats.Pending = len(pending)
	if len(pending) == 0 {
		stats.Plan = &reconcile.Plan{Summary: "nothing pending"}
		return stats, nil
	}

	plan, err := p.Reconciler.Reconcile(ctx, pending)
	if err != nil {
		return stats, fmt.Errorf("reconciling: %w", err)
	}
	stats.Plan = plan

	result, err := p.Executor.Execute(ctx, plan)
	stats.Result = result
	if err != nil {
		return stats, fmt.Errorf("executing plan: %w", err)
	}

	if err := p.Queue.Archive(); err != nil {
		return stats, fmt.Errorf("archiving artifacts: %w", err)
	}
	return stats, nil
}

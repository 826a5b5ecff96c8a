package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kortfolk/chronicle/internal/audit"
	"github.com/kortfolk/chronicle/internal/board"
	"github.com/kortfolk/chronicle/internal/brief"
	"github.com/kortfolk/chronicle/internal/config"
	"github.com/kortfolk/chronicle/internal/db"
	"github.com/kortfolk/chronicle/internal/executor"
	"github.com/kortfolk/chronicle/internal/extract"
	"github.com/kortfolk/chronicle/internal/kb"
	"github.com/kortfolk/chronicle/internal/llm"
	"github.com/kortfolk/chronicle/internal/pipeline"
	"github.com/kortfolk/chronicle/internal/reconcile"
	"github.com/kortfolk/chronicle/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `chronicle init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the SQLite store under the data directory.
func openStore(cfg *config.Config) (*kb.Store, *db.DB, error) {
	database, err := db.Open(filepath.Join(cfg.DataDir, "chronicle.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	store := kb.NewStore(database)
	if cfg.Matching.EntityThreshold > 0 {
		store.MatchThreshold = cfg.Matching.EntityThreshold
	}
	return store, database, nil
}

// buildProvider assembles the model provider with its rate limit and
// daily budget wrappers.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM)
	}
	return llm.NewBudgetedProvider(provider, cfg.BudgetUSDPerDay, cfg.DataDir), nil
}

// boardExternal returns the board client, or nil when no board is
// configured.
func boardExternal(cfg *config.Config) board.External {
	if cfg.Board.BaseURL == "" {
		return nil
	}
	return board.NewClient(cfg.Board.BaseURL, config.BoardToken())
}

// discoverSessions globs transcripts under the configured sessions dir.
func discoverSessions(cfg *config.Config) ([]string, error) {
	if cfg.SessionsDir == "" {
		return nil, fmt.Errorf("sessions_dir is not configured")
	}
	paths, err := session.FindSessions(cfg.SessionsDir, cfg.SessionGlob)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no transcripts matching %s under %s", cfg.SessionGlob, cfg.SessionsDir)
	}
	return paths, nil
}

// buildPipeline wires the full pipeline from config. The provider is
// only constructed when extraction will actually run.
func buildPipeline(cfg *config.Config, store *kb.Store, withModel bool) (*pipeline.Pipeline, error) {
	ext := boardExternal(cfg)

	p := &pipeline.Pipeline{
		Store:         store,
		Writer:        kb.NewWriter(store),
		Queue:         extract.NewPendingQueue(cfg.DataDir),
		Projector:     newProjector(cfg, store),
		DataDir:       cfg.DataDir,
		ContextWindow: cfg.ContextWindow,
	}

	if withModel {
		provider, err := buildProvider(cfg)
		if err != nil {
			return nil, err
		}
		p.Facts = extract.NewExtractor(provider, cfg.Model)
		p.Artifacts = extract.NewArtifactExtractor(provider, cfg.Model)
		if ext != nil {
			p.Frame = extract.NewFrameBuilder(ext, store, cfg.DataDir)
		}
	}

	if ext != nil {
		rec := reconcile.NewReconciler(store, ext)
		if cfg.Matching.SatisfiedThreshold > 0 {
			rec.MatchThreshold = cfg.Matching.SatisfiedThreshold
		}
		if cfg.RecentDecisionDays > 0 {
			rec.RecentWindow = time.Duration(cfg.RecentDecisionDays) * 24 * time.Hour
		}
		p.Reconciler = rec
		p.Executor = executor.New(ext, auditStore(cfg), proposalQueue(cfg))
	}

	return p, nil
}

func newProjector(cfg *config.Config, store *kb.Store) *brief.Projector {
	projector := brief.NewProjector(store)
	if cfg.Brief.DomainLines > 0 {
		projector.DomainLineCap = cfg.Brief.DomainLines
	}
	if cfg.Brief.TotalLines > 0 {
		projector.TotalLineCap = cfg.Brief.TotalLines
	}
	return projector
}

func auditStore(cfg *config.Config) *audit.Store {
	return audit.NewStore(filepath.Join(cfg.DataDir, "audit.jsonl"))
}

func proposalQueue(cfg *config.Config) *executor.ProposalQueue {
	return executor.NewProposalQueue(cfg.DataDir)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package kb

import (
	"context"
	"errors"
	"log"
	"time"
)

// Writer applies extraction proposals to the store. It is the only
// mutation path for model output: entities are resolved or created,
// already-known facts are suppressed, and a bad item skips that item
// rather than aborting the batch.
type Writer struct {
	store *Store
}

// NewWriter returns a Writer over the given store.
func NewWriter(s *Store) *Writer {
	return &Writer{store: s}
}

// ApplyStats reports what a proposal application did.
type ApplyStats struct {
	Entities         int `json:"entities"`
	FactsWritten     int `json:"facts_written"`
	FactsUnchanged   int `json:"facts_unchanged"`
	FactsSuppressed  int `json:"facts_suppressed"`
	RelationsWritten int `json:"relations_written"`
	RelationsEnded   int `json:"relations_ended"`
	Decisions        int `json:"decisions"`
	Errors           int `json:"errors"`
}

// Changed reports whether the application mutated the store.
func (s ApplyStats) Changed() bool {
	return s.FactsWritten+s.RelationsWritten+s.RelationsEnded+s.Decisions > 0
}

// Apply writes a proposal into the store. Facts marked known are
// echoes of supplied context and are skipped. validFrom bounds all
// new facts and relations; source is stamped on facts for provenance.
func (w *Writer) Apply(ctx context.Context, p *Proposal, source string, validFrom time.Time) (ApplyStats, error) {
	var stats ApplyStats
	if p.Empty() {
		return stats, nil
	}

	ids := make(map[string]string)
	resolve := func(name, entityType string) (string, error) {
		if id, ok := ids[Normalize(name)]; ok {
			return id, nil
		}
		id, err := w.store.UpsertEntity(ctx, name, NormalizeEntityType(entityType))
		if err != nil {
			return "", err
		}
		ids[Normalize(name)] = id
		return id, nil
	}

	for _, e := range p.Entities {
		if _, err := resolve(e.Name, e.Type); err != nil {
			log.Printf("kb: skipping entity %q: %v", e.Name, err)
			stats.Errors++
			continue
		}
		stats.Entities++
	}

	for _, f := range p.Facts {
		if f.Known {
			stats.FactsSuppressed++
			continue
		}
		id, err := resolve(f.Entity, "")
		if err != nil {
			log.Printf("kb: skipping fact %s.%s: %v", f.Entity, f.Attribute, err)
			stats.Errors++
			continue
		}
		_, changed, err := w.store.WriteFact(ctx, id, f.Attribute, f.Value, source, validFrom)
		if err != nil {
			log.Printf("kb: skipping fact %s.%s: %v", f.Entity, f.Attribute, err)
			stats.Errors++
			continue
		}
		if changed {
			stats.FactsWritten++
		} else {
			stats.FactsUnchanged++
		}
	}

	for _, r := range p.Relations {
		fromID, err := resolve(r.From, "")
		if err != nil {
			log.Printf("kb: skipping relation %s -%s-> %s: %v", r.From, r.Type, r.To, err)
			stats.Errors++
			continue
		}
		toID, err := resolve(r.To, "")
		if err != nil {
			log.Printf("kb: skipping relation %s -%s-> %s: %v", r.From, r.Type, r.To, err)
			stats.Errors++
			continue
		}
		if r.Ended {
			err := w.store.EndRelation(ctx, fromID, r.Type, toID, validFrom)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				log.Printf("kb: skipping relation end %s -%s-> %s: %v", r.From, r.Type, r.To, err)
				stats.Errors++
				continue
			}
			stats.RelationsEnded++
			continue
		}
		_, changed, err := w.store.WriteRelation(ctx, fromID, r.Type, toID, validFrom)
		if err != nil {
			log.Printf("kb: skipping relation %s -%s-> %s: %v", r.From, r.Type, r.To, err)
			stats.Errors++
			continue
		}
		if changed {
			stats.RelationsWritten++
		}
	}

	for _, d := range p.Decisions {
		if _, err := w.store.WriteDecision(ctx, d.Title, d.Rationale, d.Context, validFrom); err != nil {
			log.Printf("kb: skipping decision %q: %v", d.Title, err)
			stats.Errors++
			continue
		}
		stats.Decisions++
	}

	return stats, nil
}

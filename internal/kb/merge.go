package kb

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DuplicateSet groups entities that normalize to the same name.
type DuplicateSet struct {
	Normalized string   `json:"normalized"`
	Entities   []Entity `json:"entities"`
}

// FindDuplicates groups entities by normalized name and returns every
// group with more than one member.
func (s *Store) FindDuplicates(ctx context.Context) ([]DuplicateSet, error) {
	entities, err := s.Entities(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]Entity)
	var order []string
	for _, e := range entities {
		key := Normalize(e.Name)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	var out []DuplicateSet
	for _, key := range order {
		if len(groups[key]) > 1 {
			out = append(out, DuplicateSet{Normalized: key, Entities: groups[key]})
		}
	}
	return out, nil
}

// MergeEntities folds mergeID into keepID: facts, relations and domain
// assignments move across, then the merged entity is deleted. Where
// both entities hold a current fact for the same attribute, the merged
// entity's fact is closed so the kept entity's value survives.
func (s *Store) MergeEntities(ctx context.Context, keepID, mergeID string) error {
	if keepID == mergeID {
		return fmt.Errorf("cannot merge an entity into itself")
	}
	for _, id := range []string{keepID, mergeID} {
		if _, err := s.GetEntity(ctx, id); err != nil {
			return fmt.Errorf("merge: %s: %w", id, ErrUnknownEntity)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning merge: %w", err)
	}
	defer tx.Rollback()

	today := time.Now().UTC().Format(DateLayout)

	// Close merged-entity current facts whose attribute collides with a
	// kept current fact, stamping supersession toward the kept fact.
	rows, err := tx.QueryContext(ctx, `
		SELECT m.id, k.id FROM facts m
		JOIN facts k ON k.entity_id = ? AND k.attribute = m.attribute AND k.valid_to IS NULL
		WHERE m.entity_id = ? AND m.valid_to IS NULL`,
		keepID, mergeID)
	if err != nil {
		return fmt.Errorf("finding colliding facts: %w", err)
	}
	type collision struct{ mergedID, keptID string }
	var collisions []collision
	for rows.Next() {
		var c collision
		if err := rows.Scan(&c.mergedID, &c.keptID); err != nil {
			rows.Close()
			return err
		}
		collisions = append(collisions, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, c := range collisions {
		if _, err := tx.ExecContext(ctx,
			`UPDATE facts SET valid_to = ?, superseded_by = ? WHERE id = ?`,
			today, c.keptID, c.mergedID); err != nil {
			return fmt.Errorf("closing colliding fact %s: %w", c.mergedID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE facts SET entity_id = ? WHERE entity_id = ?`, keepID, mergeID); err != nil {
		return fmt.Errorf("moving facts: %w", err)
	}

	// Close current edges that would collide with the kept entity's
	// edges once rewritten, then rewrite the endpoints.
	if err := closeCollidingRelations(ctx, tx, keepID, mergeID, today); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE relations SET from_entity_id = ? WHERE from_entity_id = ?`, keepID, mergeID); err != nil {
		return fmt.Errorf("moving outgoing relations: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE relations SET to_entity_id = ? WHERE to_entity_id = ?`, keepID, mergeID); err != nil {
		return fmt.Errorf("moving incoming relations: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO entity_domains (entity_id, domain, confidence, provenance)
		SELECT ?, domain, confidence, provenance FROM entity_domains WHERE entity_id = ?`,
		keepID, mergeID); err != nil {
		return fmt.Errorf("moving domains: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entity_domains WHERE entity_id = ?`, mergeID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, mergeID); err != nil {
		return fmt.Errorf("deleting merged entity: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET updated_at = datetime('now') WHERE id = ?`, keepID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing merge: %w", err)
	}
	return nil
}

func closeCollidingRelations(ctx context.Context, tx *sql.Tx, keepID, mergeID, today string) error {
	queries := []string{
		// merged entity as source
		`SELECT m.id FROM relations m
		 JOIN relations k ON k.from_entity_id = ? AND k.relation_type = m.relation_type
		   AND k.to_entity_id = m.to_entity_id AND k.valid_to IS NULL
		 WHERE m.from_entity_id = ? AND m.valid_to IS NULL`,
		// merged entity as target
		`SELECT m.id FROM relations m
		 JOIN relations k ON k.to_entity_id = ? AND k.relation_type = m.relation_type
		   AND k.from_entity_id = m.from_entity_id AND k.valid_to IS NULL
		 WHERE m.to_entity_id = ? AND m.valid_to IS NULL`,
	}
	for _, q := range queries {
		rows, err := tx.QueryContext(ctx, q, keepID, mergeID)
		if err != nil {
			return fmt.Errorf("finding colliding relations: %w", err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE relations SET valid_to = ? WHERE id = ?`, today, id); err != nil {
				return fmt.Errorf("closing colliding relation %s: %w", id, err)
			}
		}
	}
	return nil
}

// PruneOrphans deletes entities with no facts, relations or domain
// assignments. Returns the number removed.
func (s *Store) PruneOrphans(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entities WHERE
			id NOT IN (SELECT entity_id FROM facts) AND
			id NOT IN (SELECT from_entity_id FROM relations) AND
			id NOT IN (SELECT to_entity_id FROM relations) AND
			id NOT IN (SELECT entity_id FROM entity_domains)`)
	if err != nil {
		return 0, fmt.Errorf("pruning orphan entities: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

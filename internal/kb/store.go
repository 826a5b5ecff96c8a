package kb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kortfolk/chronicle/internal/db"
)

// DateLayout is the storage form of fact validity bounds. Validity is
// tracked at day granularity.
const DateLayout = "2006-01-02"

// DefaultMatchThreshold is the similarity above which UpsertEntity
// reuses an existing entity instead of creating a new one.
const DefaultMatchThreshold = 0.82

// Store provides all reads and writes against the temporal knowledge
// base. Facts and relations are never deleted: a changed value closes
// the old row and inserts a new current one in the same transaction.
type Store struct {
	db *db.DB

	// MatchThreshold gates fuzzy entity-name reuse in UpsertEntity.
	MatchThreshold float64
}

// NewStore wraps an open database.
func NewStore(d *db.DB) *Store {
	return &Store{db: d, MatchThreshold: DefaultMatchThreshold}
}

// newID returns a short random identifier.
func newID() string {
	return uuid.NewString()[:8]
}

// parseStoredTime handles the formats SQLite hands back for our
// DATETIME defaults and date-only columns.
func parseStoredTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ---- entities ----

// UpsertEntity resolves a name to an entity id, creating the entity
// when nothing matches. Exact case-insensitive name matches win.
// Fuzzy matches above MatchThreshold reuse the best candidate; ties
// and near misses are logged as merge candidates rather than merged.
func (s *Store) UpsertEntity(ctx context.Context, name string, entityType EntityType) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("entity name is empty")
	}
	if !validEntityTypes[entityType] {
		entityType = EntityConcept
	}

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM entities WHERE name = ? COLLATE NOCASE LIMIT 1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("looking up entity %q: %w", name, err)
	}

	entities, err := s.Entities(ctx)
	if err != nil {
		return "", err
	}

	bestID, bestName := "", ""
	bestScore := 0.0
	var nearMisses []string
	for _, e := range entities {
		score := Similarity(name, e.Name)
		switch {
		case score >= s.MatchThreshold && score > bestScore:
			if bestID != "" {
				nearMisses = append(nearMisses, bestName)
			}
			bestID, bestName, bestScore = e.ID, e.Name, score
		case score >= s.MatchThreshold:
			nearMisses = append(nearMisses, e.Name)
		case score >= s.MatchThreshold-0.1:
			nearMisses = append(nearMisses, e.Name)
		}
	}

	if bestID != "" {
		if len(nearMisses) > 0 {
			log.Printf("kb: %q matched %q (%.2f), other candidates: %s",
				name, bestName, bestScore, strings.Join(nearMisses, ", "))
		}
		return bestID, nil
	}
	if len(nearMisses) > 0 {
		log.Printf("kb: creating %q, possible duplicates below threshold: %s",
			name, strings.Join(nearMisses, ", "))
	}

	return s.CreateEntity(ctx, name, entityType)
}

// CreateEntity inserts a new entity unconditionally.
func (s *Store) CreateEntity(ctx context.Context, name string, entityType EntityType) (string, error) {
	if !validEntityTypes[entityType] {
		entityType = EntityConcept
	}
	id := newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (id, name, type) VALUES (?, ?, ?)`,
		id, strings.TrimSpace(name), string(entityType))
	if err != nil {
		return "", fmt.Errorf("creating entity %q: %w", name, err)
	}
	return id, nil
}

// GetEntity returns a single entity by id.
func (s *Store) GetEntity(ctx context.Context, id string) (*Entity, error) {
	var e Entity
	var created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, created_at, updated_at FROM entities WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Type, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading entity %s: %w", id, err)
	}
	e.CreatedAt = parseStoredTime(created)
	e.UpdatedAt = parseStoredTime(updated)
	return &e, nil
}

// FindEntity resolves a name to an entity without creating anything.
// Exact case-insensitive match first, then best fuzzy match above the
// threshold. Returns ErrNotFound when nothing qualifies.
func (s *Store) FindEntity(ctx context.Context, name string) (*Entity, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM entities WHERE name = ? COLLATE NOCASE LIMIT 1`, name).Scan(&id)
	if err == nil {
		return s.GetEntity(ctx, id)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("looking up entity %q: %w", name, err)
	}

	entities, err := s.Entities(ctx)
	if err != nil {
		return nil, err
	}
	var best *Entity
	bestScore := 0.0
	for i := range entities {
		if score := Similarity(name, entities[i].Name); score >= s.MatchThreshold && score > bestScore {
			best, bestScore = &entities[i], score
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

// Entities lists all entities ordered by name.
func (s *Store) Entities(ctx context.Context) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, created_at, updated_at FROM entities ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		var created, updated string
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &created, &updated); err != nil {
			return nil, err
		}
		e.CreatedAt = parseStoredTime(created)
		e.UpdatedAt = parseStoredTime(updated)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- facts ----

// WriteFact records a current fact for an entity. If a current fact
// for the same attribute exists with a different value, it is closed
// (valid_to stamped, superseded_by set) and the new fact inserted in
// one transaction. Re-writing the same value is a no-op and returns
// the existing fact id with changed=false.
func (s *Store) WriteFact(ctx context.Context, entityID, attribute, value, source string, validFrom time.Time) (factID string, changed bool, err error) {
	attribute = strings.TrimSpace(attribute)
	value = strings.TrimSpace(value)
	if attribute == "" || value == "" {
		return "", false, fmt.Errorf("fact attribute and value are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var entityType EntityType
	err = tx.QueryRowContext(ctx,
		`SELECT type FROM entities WHERE id = ?`, entityID).Scan(&entityType)
	if err == sql.ErrNoRows {
		return "", false, fmt.Errorf("writing fact for %s: %w", entityID, ErrUnknownEntity)
	}
	if err != nil {
		return "", false, err
	}
	if !AttributeExpected(entityType, attribute) {
		log.Printf("kb: attribute %q is unusual for %s entities", attribute, entityType)
	}

	var currentID, currentValue string
	err = tx.QueryRowContext(ctx,
		`SELECT id, value FROM facts WHERE entity_id = ? AND attribute = ? AND valid_to IS NULL`,
		entityID, attribute).Scan(&currentID, &currentValue)
	if err != nil && err != sql.ErrNoRows {
		return "", false, fmt.Errorf("loading current fact: %w", err)
	}

	if err == nil && currentValue == value {
		return currentID, false, nil
	}

	newFactID := newID()
	day := validFrom.UTC().Format(DateLayout)

	if currentID != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE facts SET valid_to = ?, superseded_by = ? WHERE id = ?`,
			day, newFactID, currentID); err != nil {
			return "", false, fmt.Errorf("closing fact %s: %w", currentID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO facts (id, entity_id, attribute, value, source, valid_from) VALUES (?, ?, ?, ?, ?, ?)`,
		newFactID, entityID, attribute, value, source, day); err != nil {
		return "", false, fmt.Errorf("inserting fact: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET updated_at = datetime('now') WHERE id = ?`, entityID); err != nil {
		return "", false, err
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("committing fact write: %w", err)
	}
	return newFactID, true, nil
}

func (s *Store) scanFacts(rows *sql.Rows) ([]Fact, error) {
	defer rows.Close()
	var out []Fact
	for rows.Next() {
		var f Fact
		var validFrom, created string
		var validTo, supersededBy sql.NullString
		if err := rows.Scan(&f.ID, &f.EntityID, &f.Attribute, &f.Value, &f.Source,
			&validFrom, &validTo, &supersededBy, &created); err != nil {
			return nil, err
		}
		f.ValidFrom = parseStoredTime(validFrom)
		f.CreatedAt = parseStoredTime(created)
		if validTo.Valid {
			t := parseStoredTime(validTo.String)
			f.ValidTo = &t
		}
		f.SupersededBy = supersededBy.String
		out = append(out, f)
	}
	return out, rows.Err()
}

const factColumns = `id, entity_id, attribute, value, source, valid_from, valid_to, superseded_by, created_at`

// CurrentFacts returns the open facts for an entity, one per
// attribute, ordered by attribute.
func (s *Store) CurrentFacts(ctx context.Context, entityID string) ([]Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE entity_id = ? AND valid_to IS NULL ORDER BY attribute`,
		entityID)
	if err != nil {
		return nil, fmt.Errorf("loading current facts: %w", err)
	}
	return s.scanFacts(rows)
}

// History returns every fact ever recorded for an entity, including
// superseded ones, ordered by validity start then insertion.
func (s *Store) History(ctx context.Context, entityID string) ([]Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE entity_id = ? ORDER BY valid_from, created_at, id`,
		entityID)
	if err != nil {
		return nil, fmt.Errorf("loading fact history: %w", err)
	}
	return s.scanFacts(rows)
}

// AttributeHistory returns the full supersession chain for one
// attribute of an entity.
func (s *Store) AttributeHistory(ctx context.Context, entityID, attribute string) ([]Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE entity_id = ? AND attribute = ? ORDER BY valid_from, created_at, id`,
		entityID, attribute)
	if err != nil {
		return nil, fmt.Errorf("loading attribute history: %w", err)
	}
	return s.scanFacts(rows)
}

// ---- relations ----

// WriteRelation records a current edge keyed by (from, type, to),
// superseding any differing current edge with the same key. An
// identical current edge makes this a no-op.
func (s *Store) WriteRelation(ctx context.Context, fromID, relationType, toID string, validFrom time.Time) (relationID string, changed bool, err error) {
	relationType = strings.TrimSpace(relationType)
	if relationType == "" {
		return "", false, fmt.Errorf("relation type is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range []string{fromID, toID} {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM entities WHERE id = ?`, id).Scan(&exists); err != nil {
			return "", false, err
		}
		if exists == 0 {
			return "", false, fmt.Errorf("writing relation for %s: %w", id, ErrUnknownEntity)
		}
	}

	var currentID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM relations WHERE from_entity_id = ? AND relation_type = ? AND to_entity_id = ? AND valid_to IS NULL`,
		fromID, relationType, toID).Scan(&currentID)
	if err != nil && err != sql.ErrNoRows {
		return "", false, fmt.Errorf("loading current relation: %w", err)
	}
	if err == nil {
		return currentID, false, nil
	}

	id := newID()
	day := validFrom.UTC().Format(DateLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO relations (id, from_entity_id, relation_type, to_entity_id, valid_from) VALUES (?, ?, ?, ?, ?)`,
		id, fromID, relationType, toID, day); err != nil {
		return "", false, fmt.Errorf("inserting relation: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET updated_at = datetime('now') WHERE id IN (?, ?)`,
		fromID, toID); err != nil {
		return "", false, err
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("committing relation write: %w", err)
	}
	return id, true, nil
}

// EndRelation closes the current edge with the given key. Returns
// ErrNotFound when no current edge exists.
func (s *Store) EndRelation(ctx context.Context, fromID, relationType, toID string, validTo time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE relations SET valid_to = ? WHERE from_entity_id = ? AND relation_type = ? AND to_entity_id = ? AND valid_to IS NULL`,
		validTo.UTC().Format(DateLayout), fromID, relationType, toID)
	if err != nil {
		return fmt.Errorf("ending relation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("ending relation %s -%s-> %s: %w", fromID, relationType, toID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET updated_at = datetime('now') WHERE id IN (?, ?)`,
		fromID, toID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing relation end: %w", err)
	}
	return nil
}

// CurrentRelations returns the open edges touching an entity, both
// outgoing and incoming, with entity names resolved.
func (s *Store) CurrentRelations(ctx context.Context, entityID string) ([]Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.from_entity_id, ef.name, r.relation_type, r.to_entity_id, et.name, r.valid_from
		FROM relations r
		JOIN entities ef ON ef.id = r.from_entity_id
		JOIN entities et ON et.id = r.to_entity_id
		WHERE (r.from_entity_id = ? OR r.to_entity_id = ?) AND r.valid_to IS NULL
		ORDER BY r.relation_type, ef.name, et.name`,
		entityID, entityID)
	if err != nil {
		return nil, fmt.Errorf("loading relations: %w", err)
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		var validFrom string
		if err := rows.Scan(&r.ID, &r.FromID, &r.FromName, &r.Type, &r.ToID, &r.ToName, &validFrom); err != nil {
			return nil, err
		}
		r.ValidFrom = parseStoredTime(validFrom)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- decisions ----

// WriteDecision records a new active decision.
func (s *Store) WriteDecision(ctx context.Context, title, rationale, background string, decidedAt time.Time) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("decision title is required")
	}
	id := newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, title, rationale, context, status, decided_at) VALUES (?, ?, ?, ?, 'active', ?)`,
		id, title, rationale, background, decidedAt.UTC().Format(DateLayout))
	if err != nil {
		return "", fmt.Errorf("writing decision: %w", err)
	}
	return id, nil
}

// SupersedeDecision marks an active decision as superseded by another.
// Only active decisions can transition.
func (s *Store) SupersedeDecision(ctx context.Context, id, newID string) error {
	return s.transitionDecision(ctx, id, DecisionSuperseded, newID)
}

// ReverseDecision marks an active decision as reversed.
func (s *Store) ReverseDecision(ctx context.Context, id string) error {
	return s.transitionDecision(ctx, id, DecisionReversed, "")
}

func (s *Store) transitionDecision(ctx context.Context, id string, to DecisionStatus, supersededBy string) error {
	var sb any
	if supersededBy != "" {
		sb = supersededBy
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisions SET status = ?, superseded_by = ? WHERE id = ? AND status = 'active'`,
		string(to), sb, id)
	if err != nil {
		return fmt.Errorf("updating decision %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM decisions WHERE id = ?`, id).Scan(&status)
		if err == sql.ErrNoRows {
			return fmt.Errorf("decision %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("decision %s is %s, only active decisions can transition", id, status)
	}
	return nil
}

func (s *Store) scanDecisions(rows *sql.Rows) ([]Decision, error) {
	defer rows.Close()
	var out []Decision
	for rows.Next() {
		var d Decision
		var decided, created string
		var supersededBy sql.NullString
		if err := rows.Scan(&d.ID, &d.Title, &d.Rationale, &d.Context, &d.Status,
			&supersededBy, &decided, &created); err != nil {
			return nil, err
		}
		d.SupersededBy = supersededBy.String
		d.DecidedAt = parseStoredTime(decided)
		d.CreatedAt = parseStoredTime(created)
		out = append(out, d)
	}
	return out, rows.Err()
}

const decisionColumns = `id, title, rationale, context, status, superseded_by, decided_at, created_at`

// GetDecision returns a single decision by id.
func (s *Store) GetDecision(ctx context.Context, id string) (*Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	decisions, err := s.scanDecisions(rows)
	if err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, ErrNotFound
	}
	return &decisions[0], nil
}

// ListDecisions returns decisions newest first, active only unless
// all is set.
func (s *Store) ListDecisions(ctx context.Context, all bool) ([]Decision, error) {
	q := `SELECT ` + decisionColumns + ` FROM decisions`
	if !all {
		q += ` WHERE status = 'active'`
	}
	q += ` ORDER BY decided_at DESC, created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	return s.scanDecisions(rows)
}

// RecentDecisions returns decisions decided on or after the cutoff,
// regardless of status, newest first.
func (s *Store) RecentDecisions(ctx context.Context, since time.Time) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE decided_at >= ? ORDER BY decided_at DESC, created_at DESC`,
		since.UTC().Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("listing recent decisions: %w", err)
	}
	return s.scanDecisions(rows)
}

// ---- search ----

// Search does substring matching over entity names, fact values and
// attributes, and decision titles and rationale.
func (s *Store) Search(ctx context.Context, query string) (SearchResults, error) {
	var results SearchResults
	pattern := "%" + query + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, created_at, updated_at FROM entities WHERE name LIKE ? ORDER BY name COLLATE NOCASE`,
		pattern)
	if err != nil {
		return results, fmt.Errorf("searching entities: %w", err)
	}
	for rows.Next() {
		var e Entity
		var created, updated string
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &created, &updated); err != nil {
			rows.Close()
			return results, err
		}
		e.CreatedAt = parseStoredTime(created)
		e.UpdatedAt = parseStoredTime(updated)
		results.Entities = append(results.Entities, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return results, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT f.id, f.entity_id, f.attribute, f.value, f.source, f.valid_from, f.valid_to, f.superseded_by, f.created_at, e.name
		FROM facts f JOIN entities e ON e.id = f.entity_id
		WHERE f.value LIKE ? OR f.attribute LIKE ?
		ORDER BY f.valid_to IS NOT NULL, e.name, f.attribute`,
		pattern, pattern)
	if err != nil {
		return results, fmt.Errorf("searching facts: %w", err)
	}
	for rows.Next() {
		var h FactHit
		var validFrom, created string
		var validTo, supersededBy sql.NullString
		if err := rows.Scan(&h.ID, &h.EntityID, &h.Attribute, &h.Value, &h.Source,
			&validFrom, &validTo, &supersededBy, &created, &h.EntityName); err != nil {
			rows.Close()
			return results, err
		}
		h.ValidFrom = parseStoredTime(validFrom)
		h.CreatedAt = parseStoredTime(created)
		if validTo.Valid {
			t := parseStoredTime(validTo.String)
			h.ValidTo = &t
		}
		h.SupersededBy = supersededBy.String
		results.Facts = append(results.Facts, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return results, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE title LIKE ? OR rationale LIKE ? ORDER BY decided_at DESC`,
		pattern, pattern)
	if err != nil {
		return results, fmt.Errorf("searching decisions: %w", err)
	}
	results.Decisions, err = s.scanDecisions(rows)
	return results, err
}

// ---- domains ----

// AssignDomain tags an entity with a domain. Re-assignment keeps the
// higher confidence.
func (s *Store) AssignDomain(ctx context.Context, entityID, domain string, confidence float64, provenance Provenance) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return fmt.Errorf("domain is required")
	}
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE id = ?`, entityID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("assigning domain to %s: %w", entityID, ErrUnknownEntity)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entity_domains (entity_id, domain, confidence, provenance) VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id, domain) DO UPDATE SET
			confidence = max(confidence, excluded.confidence),
			provenance = excluded.provenance`,
		entityID, domain, confidence, string(provenance))
	if err != nil {
		return fmt.Errorf("assigning domain: %w", err)
	}
	return nil
}

// Domains returns an entity's domain assignments, highest confidence
// first.
func (s *Store) Domains(ctx context.Context, entityID string) ([]DomainAssignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, domain, confidence, provenance FROM entity_domains WHERE entity_id = ? ORDER BY confidence DESC, domain`,
		entityID)
	if err != nil {
		return nil, fmt.Errorf("loading domains: %w", err)
	}
	defer rows.Close()
	var out []DomainAssignment
	for rows.Next() {
		var d DomainAssignment
		if err := rows.Scan(&d.EntityID, &d.Domain, &d.Confidence, &d.Provenance); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PrimaryDomain returns the highest-confidence domain for an entity,
// or "general" when none is assigned.
func (s *Store) PrimaryDomain(ctx context.Context, entityID string) (string, error) {
	var domain string
	err := s.db.QueryRowContext(ctx,
		`SELECT domain FROM entity_domains WHERE entity_id = ? ORDER BY confidence DESC, domain LIMIT 1`,
		entityID).Scan(&domain)
	if err == sql.ErrNoRows {
		return "general", nil
	}
	if err != nil {
		return "", err
	}
	return domain, nil
}

// AssignDomainsFromSources bulk-assigns domains by matching fact
// sources against rule patterns. An entity whose facts match a rule
// gets that domain at a confidence proportional to the matching
// fraction. Returns the number of assignments written.
func (s *Store) AssignDomainsFromSources(ctx context.Context, rules []DomainRule) (int, error) {
	entities, err := s.Entities(ctx)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, e := range entities {
		facts, err := s.History(ctx, e.ID)
		if err != nil {
			return assigned, err
		}
		if len(facts) == 0 {
			continue
		}
		for _, rule := range rules {
			matches := 0
			for _, f := range facts {
				for _, pat := range rule.Patterns {
					if pat != "" && strings.Contains(strings.ToLower(f.Source), strings.ToLower(pat)) {
						matches++
						break
					}
				}
			}
			if matches == 0 {
				continue
			}
			confidence := float64(matches) / float64(len(facts))
			if confidence < 0.3 {
				confidence = 0.3
			}
			if err := s.AssignDomain(ctx, e.ID, rule.Domain, confidence, ProvenanceMigration); err != nil {
				return assigned, err
			}
			assigned++
		}
	}
	return assigned, nil
}

// ---- subgraph ----

// Subgraph returns current knowledge for extraction and reconciliation
// context. An empty domain selects every entity.
func (s *Store) Subgraph(ctx context.Context, domain string) (*Subgraph, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if domain == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, name, type, created_at, updated_at FROM entities ORDER BY name COLLATE NOCASE`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT e.id, e.name, e.type, e.created_at, e.updated_at
			FROM entities e JOIN entity_domains d ON d.entity_id = e.id
			WHERE d.domain = ? ORDER BY e.name COLLATE NOCASE`,
			strings.ToLower(domain))
	}
	if err != nil {
		return nil, fmt.Errorf("loading subgraph entities: %w", err)
	}

	var entities []Entity
	for rows.Next() {
		var e Entity
		var created, updated string
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &created, &updated); err != nil {
			rows.Close()
			return nil, err
		}
		e.CreatedAt = parseStoredTime(created)
		e.UpdatedAt = parseStoredTime(updated)
		entities = append(entities, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sg := &Subgraph{Domain: domain}
	for _, e := range entities {
		facts, err := s.CurrentFacts(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		relations, err := s.CurrentRelations(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		var outgoing []Relation
		for _, r := range relations {
			if r.FromID == e.ID {
				outgoing = append(outgoing, r)
			}
		}
		sg.Entities = append(sg.Entities, EntityFacts{Entity: e, Facts: facts, Relations: outgoing})
	}
	return sg, nil
}

// Stats summarizes store contents for the status command.
type Stats struct {
	Entities        int `json:"entities"`
	CurrentFacts    int `json:"current_facts"`
	TotalFacts      int `json:"total_facts"`
	Relations       int `json:"relations"`
	ActiveDecisions int `json:"active_decisions"`
	TotalDecisions  int `json:"total_decisions"`
}

// Stats returns row counts across the store.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM entities`, &st.Entities},
		{`SELECT COUNT(*) FROM facts WHERE valid_to IS NULL`, &st.CurrentFacts},
		{`SELECT COUNT(*) FROM facts`, &st.TotalFacts},
		{`SELECT COUNT(*) FROM relations WHERE valid_to IS NULL`, &st.Relations},
		{`SELECT COUNT(*) FROM decisions WHERE status = 'active'`, &st.ActiveDecisions},
		{`SELECT COUNT(*) FROM decisions`, &st.TotalDecisions},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return st, err
		}
	}
	return st, nil
}

// EntitySummary pairs an entity with its current fact count.
type EntitySummary struct {
	Entity
	FactCount int    `json:"fact_count"`
	Domain    string `json:"domain,omitempty"`
}

// EntitySummaries lists entities with current fact counts and primary
// domains, most facts first.
func (s *Store) EntitySummaries(ctx context.Context) ([]EntitySummary, error) {
	entities, err := s.Entities(ctx)
	if err != nil {
		return nil, err
	}
	var out []EntitySummary
	for _, e := range entities {
		var count int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM facts WHERE entity_id = ? AND valid_to IS NULL`, e.ID).Scan(&count); err != nil {
			return nil, err
		}
		domain, err := s.PrimaryDomain(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		if domain == "general" {
			domain = ""
		}
		out = append(out, EntitySummary{Entity: e, FactCount: count, Domain: domain})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FactCount > out[j].FactCount })
	return out, nil
}

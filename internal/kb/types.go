package kb

import (
	"errors"
	"time"
)

// ErrUnknownEntity is returned when a write references an entity id
// that does not exist in the store.
var ErrUnknownEntity = errors.New("unknown entity")

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// EntityType classifies an entity.
type EntityType string

const (
	EntityPerson  EntityType = "person"
	EntityProject EntityType = "project"
	EntityCompany EntityType = "company"
	EntityConcept EntityType = "concept"
	EntityFeature EntityType = "feature"
	EntityTool    EntityType = "tool"
)

// validEntityTypes mirrors the CHECK constraint on the entities table.
var validEntityTypes = map[EntityType]bool{
	EntityPerson:  true,
	EntityProject: true,
	EntityCompany: true,
	EntityConcept: true,
	EntityFeature: true,
	EntityTool:    true,
}

// NormalizeEntityType coerces free-form type strings to a valid
// EntityType, defaulting to concept.
func NormalizeEntityType(s string) EntityType {
	t := EntityType(s)
	if validEntityTypes[t] {
		return t
	}
	return EntityConcept
}

// recommendedAttributes is a soft schema per entity type. Writes with
// other attributes are allowed but logged, since drifting attribute
// names degrade matching and briefing grouping.
var recommendedAttributes = map[EntityType]map[string]bool{
	EntityPerson:  set("role", "status", "team", "location", "email", "manager"),
	EntityProject: set("status", "deadline", "owner", "priority", "stage", "repo"),
	EntityCompany: set("status", "industry", "relationship", "size"),
	EntityFeature: set("status", "owner", "release", "priority"),
	EntityTool:    set("status", "version", "owner", "purpose"),
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// AttributeExpected reports whether an attribute is in the entity
// type's recommended set. Types without a set accept anything.
func AttributeExpected(entityType EntityType, attribute string) bool {
	recommended, ok := recommendedAttributes[entityType]
	if !ok {
		return true
	}
	return recommended[attribute]
}

// Entity is a named thing facts attach to.
type Entity struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      EntityType `json:"type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Fact is a time-bounded attribute value. A nil ValidTo means the fact
// is current. Superseded facts carry the id of their replacement.
type Fact struct {
	ID           string     `json:"id"`
	EntityID     string     `json:"entity_id"`
	Attribute    string     `json:"attribute"`
	Value        string     `json:"value"`
	Source       string     `json:"source,omitempty"`
	ValidFrom    time.Time  `json:"valid_from"`
	ValidTo      *time.Time `json:"valid_to,omitempty"`
	SupersededBy string     `json:"superseded_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Current reports whether the fact has no end bound.
func (f Fact) Current() bool { return f.ValidTo == nil }

// Relation is a time-bounded typed edge between two entities.
type Relation struct {
	ID           string     `json:"id"`
	FromID       string     `json:"from_entity_id"`
	FromName     string     `json:"from_name,omitempty"`
	Type         string     `json:"relation_type"`
	ToID         string     `json:"to_entity_id"`
	ToName       string     `json:"to_name,omitempty"`
	ValidFrom    time.Time  `json:"valid_from"`
	ValidTo      *time.Time `json:"valid_to,omitempty"`
	SupersededBy string     `json:"superseded_by,omitempty"`
}

// DecisionStatus is the lifecycle state of a decision. Transitions are
// forward-only: active decisions may become superseded or reversed,
// nothing moves back to active.
type DecisionStatus string

const (
	DecisionActive     DecisionStatus = "active"
	DecisionSuperseded DecisionStatus = "superseded"
	DecisionReversed   DecisionStatus = "reversed"
)

// Decision is a first-class record of a choice and its rationale.
type Decision struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Rationale    string         `json:"rationale,omitempty"`
	Context      string         `json:"context,omitempty"`
	Status       DecisionStatus `json:"status"`
	SupersededBy string         `json:"superseded_by,omitempty"`
	DecidedAt    time.Time      `json:"decided_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Provenance records how a domain assignment was made.
type Provenance string

const (
	ProvenanceMigration  Provenance = "migration"
	ProvenanceExtraction Provenance = "extraction"
	ProvenanceManual     Provenance = "manual"
)

// DomainAssignment tags an entity with a domain at a confidence level.
type DomainAssignment struct {
	EntityID   string     `json:"entity_id"`
	Domain     string     `json:"domain"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
}

// Proposal is a batch of extracted knowledge awaiting application.
// The Writer is the only path from a Proposal into the store.
type Proposal struct {
	Entities  []ProposedEntity   `json:"entities"`
	Facts     []ProposedFact     `json:"facts"`
	Relations []ProposedRelation `json:"relations"`
	Decisions []ProposedDecision `json:"decisions"`
}

// Empty reports whether the proposal contains nothing to apply.
func (p *Proposal) Empty() bool {
	return p == nil ||
		len(p.Entities) == 0 && len(p.Facts) == 0 &&
			len(p.Relations) == 0 && len(p.Decisions) == 0
}

// ProposedEntity names an entity mentioned in the source material.
type ProposedEntity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ProposedFact is a candidate fact. Known marks values the model saw
// in the supplied context; the Writer skips them to avoid feedback
// loops where the store's own contents are re-extracted.
type ProposedFact struct {
	Entity    string `json:"entity"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Known     bool   `json:"known,omitempty"`
}

// ProposedRelation is a candidate edge. Ended closes an existing edge
// instead of creating one.
type ProposedRelation struct {
	From  string `json:"from"`
	Type  string `json:"type"`
	To    string `json:"to"`
	Ended bool   `json:"ended,omitempty"`
}

// ProposedDecision is a candidate decision record.
type ProposedDecision struct {
	Title     string `json:"title"`
	Rationale string `json:"rationale"`
	Context   string `json:"context"`
}

// EntityFacts bundles an entity with its current facts and relations,
// used as extraction context and for subgraph queries.
type EntityFacts struct {
	Entity    Entity     `json:"entity"`
	Facts     []Fact     `json:"facts"`
	Relations []Relation `json:"relations,omitempty"`
}

// Subgraph is the current knowledge for a set of entities.
type Subgraph struct {
	Domain   string        `json:"domain,omitempty"`
	Entities []EntityFacts `json:"entities"`
}

// SearchResults groups hits across entities, facts and decisions.
type SearchResults struct {
	Entities  []Entity   `json:"entities"`
	Facts     []FactHit  `json:"facts"`
	Decisions []Decision `json:"decisions"`
}

// FactHit is a search hit with the owning entity's name attached.
type FactHit struct {
	Fact
	EntityName string `json:"entity_name"`
}

// Total returns the number of hits across all result kinds.
func (r SearchResults) Total() int {
	return len(r.Entities) + len(r.Facts) + len(r.Decisions)
}

// DomainRule maps fact-source substrings to a domain, used for bulk
// domain assignment over an existing store.
type DomainRule struct {
	Domain   string   `yaml:"domain" koanf:"domain" json:"domain"`
	Patterns []string `yaml:"patterns" koanf:"patterns" json:"patterns"`
}

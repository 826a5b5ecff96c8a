// Package brief projects the store's current state into a compact
// markdown briefing. The briefing is a pure projection: regenerating it
// from the same store produces the same text, and superseded facts
// never appear in it.
package brief

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kortfolk/chronicle/internal/kb"
)

// Line caps keep the briefing readable as a prompt preamble. Domains
// are truncated independently so one crowded domain cannot push the
// others out.
const (
	DefaultDomainLineCap = 40
	DefaultTotalLineCap  = 200
)

// FileName is the briefing file written under the data directory.
const FileName = "briefing.md"

// Projector renders briefings from a store.
type Projector struct {
	store *kb.Store

	DomainLineCap int
	TotalLineCap  int
}

// NewProjector builds a projector with default caps.
func NewProjector(store *kb.Store) *Projector {
	return &Projector{
		store:         store,
		DomainLineCap: DefaultDomainLineCap,
		TotalLineCap:  DefaultTotalLineCap,
	}
}

// Generate renders the briefing: current facts and relations grouped
// by primary domain, then active decisions. Ordering is deterministic
// so diffs between regenerations reflect store changes only.
func (p *Projector) Generate(ctx context.Context) (string, error) {
	entities, err := p.store.Entities(ctx)
	if err != nil {
		return "", fmt.Errorf("loading entities: %w", err)
	}

	names := make(map[string]string, len(entities))
	for _, e := range entities {
		names[e.ID] = e.Name
	}

	byDomain := map[string][]string{}
	for _, e := range entities {
		domain, err := p.store.PrimaryDomain(ctx, e.ID)
		if err != nil {
			return "", err
		}
		facts, err := p.store.CurrentFacts(ctx, e.ID)
		if err != nil {
			return "", err
		}
		relations, err := p.store.CurrentRelations(ctx, e.ID)
		if err != nil {
			return "", err
		}
		lines := entityLines(e, facts, relations, names)
		if len(lines) > 0 {
			byDomain[domain] = append(byDomain[domain], lines...)
		}
	}

	var b strings.Builder
	b.WriteString("# Briefing\n\n")
	fmt.Fprintf(&b, "Generated %s.\n", time.Now().UTC().Format("2006-01-02"))

	total := 0
	for _, domain := range sortedDomains(byDomain) {
		lines := byDomain[domain]
		if len(lines) > p.DomainLineCap {
			lines = append(lines[:p.DomainLineCap:p.DomainLineCap],
				fmt.Sprintf("- (%d more entries omitted)", len(byDomain[domain])-p.DomainLineCap))
		}
		if total+len(lines) > p.TotalLineCap {
			remaining := p.TotalLineCap - total
			if remaining <= 0 {
				break
			}
			lines = append(lines[:remaining:remaining], "- (truncated)")
		}
		fmt.Fprintf(&b, "\n## %s\n\n", titleCase(domain))
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		total += len(lines)
	}

	decisions, err := p.store.ListDecisions(ctx, false)
	if err != nil {
		return "", fmt.Errorf("loading decisions: %w", err)
	}
	if len(decisions) > 0 {
		b.WriteString("\n## Decisions\n\n")
		for _, d := range decisions {
			line := fmt.Sprintf("- %s (%s)", d.Title, d.DecidedAt.Format("2006-01-02"))
			if d.Rationale != "" {
				line += ": " + firstSentence(d.Rationale)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	return b.String(), nil
}

// Write regenerates the briefing file under dir.
func (p *Projector) Write(ctx context.Context, dir string) error {
	content, err := p.Generate(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644)
}

// entityLines renders one entity as a heading line plus indented fact
// and relation lines. Entities with no current facts or relations
// render nothing.
func entityLines(e kb.Entity, facts []kb.Fact, relations []kb.Relation, names map[string]string) []string {
	if len(facts) == 0 && len(relations) == 0 {
		return nil
	}

	sort.Slice(facts, func(i, j int) bool { return facts[i].Attribute < facts[j].Attribute })

	lines := []string{fmt.Sprintf("- **%s** (%s)", e.Name, e.Type)}
	for _, f := range facts {
		lines = append(lines, fmt.Sprintf("  - %s: %s", f.Attribute, f.Value))
	}

	var outgoing []kb.Relation
	for _, r := range relations {
		if r.FromID == e.ID {
			outgoing = append(outgoing, r)
		}
	}
	sort.Slice(outgoing, func(i, j int) bool {
		if outgoing[i].Type != outgoing[j].Type {
			return outgoing[i].Type < outgoing[j].Type
		}
		return names[outgoing[i].ToID] < names[outgoing[j].ToID]
	})
	for _, r := range outgoing {
		to := names[r.ToID]
		if to == "" {
			to = r.ToID
		}
		lines = append(lines, fmt.Sprintf("  - %s %s", r.Type, to))
	}
	return lines
}

// sortedDomains orders domains alphabetically with general last, so
// named domains always lead the briefing.
func sortedDomains(byDomain map[string][]string) []string {
	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool {
		if (domains[i] == "general") != (domains[j] == "general") {
			return domains[j] == "general"
		}
		return domains[i] < domains[j]
	})
	return domains
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func firstSentence(s string) string {
	if idx := strings.IndexAny(s, ".\n"); idx > 0 {
		return s[:idx]
	}
	return s
}

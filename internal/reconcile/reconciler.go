package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/kortfolk/chronicle/internal/board"
	"github.com/kortfolk/chronicle/internal/extract"
	"github.com/kortfolk/chronicle/internal/kb"
)

// DefaultMatchThreshold is the title similarity above which an
// artifact is considered to be about an existing item or doc.
const DefaultMatchThreshold = 0.6

// DefaultRecentWindow bounds the decision window the reconciler
// checks artifacts against.
const DefaultRecentWindow = 7 * 24 * time.Hour

// Reconciler compares pending artifacts against a fresh snapshot of
// external state and the store, and classifies each artifact as
// satisfied, a gap, or a conflict. Matching and scoring are plain
// deterministic code; the model's involvement ended at extraction.
type Reconciler struct {
	store *kb.Store
	ext   board.External

	// MatchThreshold gates title matching against items and docs.
	MatchThreshold float64

	// RecentWindow bounds the stored-decision comparison.
	RecentWindow time.Duration
}

// NewReconciler builds a reconciler over the store and the external
// boundary.
func NewReconciler(store *kb.Store, ext board.External) *Reconciler {
	return &Reconciler{
		store:          store,
		ext:            ext,
		MatchThreshold: DefaultMatchThreshold,
		RecentWindow:   DefaultRecentWindow,
	}
}

// Reconcile runs one batch. External state is fetched fresh on every
// call; nothing is cached between runs.
func (r *Reconciler) Reconcile(ctx context.Context, artifacts []extract.Artifact) (*Plan, error) {
	plan := &Plan{GeneratedAt: time.Now().UTC()}
	if len(artifacts) == 0 {
		plan.Summary = "nothing pending"
		return plan, nil
	}

	snapshot, err := board.TakeSnapshot(ctx, r.ext)
	if err != nil {
		return nil, fmt.Errorf("reading external state: %w", err)
	}

	var decisions []kb.Decision
	if r.store != nil {
		decisions, err = r.store.RecentDecisions(ctx, plan.GeneratedAt.Add(-r.RecentWindow))
		if err != nil {
			return nil, fmt.Errorf("reading recent decisions: %w", err)
		}
	}

	for i, artifact := range artifacts {
		corroboration := corroborationCount(artifacts, i)
		score := ScoreArtifact(artifact, corroboration, plan.GeneratedAt)

		item, itemScore := r.bestItem(artifact, snapshot.Items)
		doc, docScore := r.bestDoc(artifact, snapshot.Docs)

		// Contradictions are flagged and produce no action, whatever
		// the confidence.
		if ClaimsContradiction(artifact) {
			subject := "stored state"
			if item != nil && itemScore >= r.MatchThreshold {
				subject = fmt.Sprintf("board item %s (%s)", item.ID, item.Title)
			}
			plan.Conflicts = append(plan.Conflicts, Conflict{
				ArtifactTitle:  artifact.Title,
				Subject:        subject,
				Description:    fmt.Sprintf("artifact claims completed work came undone: %s", artifact.Summary),
				Recommendation: "review manually; no automatic resolution",
			})
			continue
		}
		if conflict := r.decisionConflict(artifact, decisions); conflict != nil {
			plan.Conflicts = append(plan.Conflicts, *conflict)
			continue
		}

		claims, explicit := ClaimsCompletion(artifact)
		if claims && item != nil && itemScore >= r.MatchThreshold {
			if !item.Open() {
				plan.Satisfied++
				continue
			}
			// Implied completion never earns the high band, however
			// the rest of the signals add up.
			if !explicit && score > 0.9 {
				score = 0.9
			}
			plan.Actions = append(plan.Actions, Action{
				Type:           ActionMarkDone,
				TargetID:       item.ID,
				Title:          item.Title,
				Rationale:      fmt.Sprintf("artifact %q reports this work finished", artifact.Title),
				Confidence:     Band(score),
				Score:          score,
				SourceArtifact: artifact.Title,
				SourceSession:  artifact.SourceSession,
				Evidence:       artifact.Summary,
			})
			continue
		}

		plan.Actions = append(plan.Actions, r.contentAction(artifact, item, itemScore, doc, docScore, score, plan)...)
	}

	plan.Summary = fmt.Sprintf("%d artifacts: %d actions proposed, %d conflicts flagged, %d satisfied",
		len(artifacts), len(plan.Actions), len(plan.Conflicts), plan.Satisfied)
	return plan, nil
}

// contentAction maps a non-completion artifact to its create or enrich
// action. Matched artifacts with nothing to add count as satisfied.
func (r *Reconciler) contentAction(artifact extract.Artifact, item *board.Item, itemScore float64, doc *board.Doc, docScore float64, score float64, plan *Plan) []Action {
	base := Action{
		Confidence:     Band(score),
		Score:          score,
		SourceArtifact: artifact.Title,
		SourceSession:  artifact.SourceSession,
		Evidence:       artifact.Summary,
	}

	docMatched := doc != nil && docScore >= r.MatchThreshold

	switch artifact.Type {
	case extract.ArtifactPlan:
		if item != nil && itemScore >= r.MatchThreshold {
			if item.Open() {
				base.Type = ActionAppendNote
				base.TargetID = item.ID
				base.Title = item.Title
				base.Content = artifact.Content
				base.Rationale = fmt.Sprintf("plan %q refines existing item", artifact.Title)
				return []Action{base}
			}
			plan.Satisfied++
			return nil
		}
		base.Type = ActionCreateItem
		base.Title = artifact.Title
		base.Content = artifact.Summary + "\n\n" + artifact.Content
		base.Rationale = "plan has no corresponding board item"
		return []Action{base}

	case extract.ArtifactErrorPattern:
		base.Type = ActionProposeFix
		base.Title = artifact.Title
		base.Section = "fixes"
		base.Content = artifact.Content
		if docMatched {
			base.TargetID = doc.ID
		}
		base.Rationale = "error pattern with a diagnosed fix"
		return []Action{base}

	case extract.ArtifactDecision:
		base.Content = artifact.Content
		base.Title = artifact.Title
		base.Section = "decisions"
		if docMatched {
			base.Type = ActionAppendDocSection
			base.TargetID = doc.ID
			base.Rationale = fmt.Sprintf("decision context extends doc %q", doc.Title)
		} else {
			base.Type = ActionCreateDoc
			base.Rationale = "decision has no documented home"
		}
		return []Action{base}

	default: // analysis, framework
		if docMatched {
			// Enrich only when the artifact carries more than the doc
			// already summarizes; otherwise the state is satisfied.
			if len(artifact.Content) > len(doc.Summary)+80 {
				base.Type = ActionAppendDocSection
				base.TargetID = doc.ID
				base.Title = doc.Title
				base.Section = artifact.Title
				base.Content = artifact.Content
				base.Rationale = fmt.Sprintf("%s adds material to existing doc", artifact.Type)
				return []Action{base}
			}
			plan.Satisfied++
			return nil
		}
		base.Type = ActionCreateDoc
		base.Title = artifact.Title
		base.Section = artifact.Domain
		base.Content = artifact.Content
		base.Rationale = fmt.Sprintf("%s is not captured anywhere", artifact.Type)
		return []Action{base}
	}
}

func (r *Reconciler) bestItem(artifact extract.Artifact, items []board.Item) (*board.Item, float64) {
	var best *board.Item
	bestScore := 0.0
	for i := range items {
		if score := kb.Similarity(artifact.Title, items[i].Title); score > bestScore {
			best, bestScore = &items[i], score
		}
	}
	return best, bestScore
}

func (r *Reconciler) bestDoc(artifact extract.Artifact, docs []board.Doc) (*board.Doc, float64) {
	var best *board.Doc
	bestScore := 0.0
	for i := range docs {
		if score := kb.Similarity(artifact.Title, docs[i].Title); score > bestScore {
			best, bestScore = &docs[i], score
		}
	}
	return best, bestScore
}

// decisionConflict flags decision artifacts that contradict a recent
// active decision on the same subject.
func (r *Reconciler) decisionConflict(artifact extract.Artifact, decisions []kb.Decision) *Conflict {
	if artifact.Type != extract.ArtifactDecision {
		return nil
	}
	for _, d := range decisions {
		if d.Status != kb.DecisionActive {
			continue
		}
		if kb.Similarity(artifact.Title, d.Title) < r.MatchThreshold {
			continue
		}
		// Same subject decided again with different substance.
		if kb.Similarity(artifact.Summary, d.Rationale) < 0.5 && artifact.Summary != "" && d.Rationale != "" {
			return &Conflict{
				ArtifactTitle:  artifact.Title,
				Subject:        fmt.Sprintf("decision %s (%s)", d.ID, d.Title),
				Description:    "new decision context disagrees with a recent active decision",
				Recommendation: "supersede or reverse the stored decision explicitly",
			}
		}
	}
	return nil
}

// corroborationCount counts other artifacts about the same subject.
func corroborationCount(artifacts []extract.Artifact, idx int) int {
	count := 0
	for i, other := range artifacts {
		if i == idx {
			continue
		}
		if kb.Similarity(artifacts[idx].Title, other.Title) >= 0.6 {
			count++
		}
	}
	return count
}

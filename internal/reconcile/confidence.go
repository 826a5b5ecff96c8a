package reconcile

import (
	"regexp"
	"strings"
	"time"

	"github.com/kortfolk/chronicle/internal/extract"
)

// Confidence banding thresholds over the numeric score.
const (
	highThreshold = 0.9
	lowThreshold  = 0.5
)

// explicitDone matches past-tense completion claims.
var explicitDone = regexp.MustCompile(`\b(shipped|deployed|merged|released|landed|fixed|completed|finished|submitted|verified|migrated)\b`)

// impliedDone matches forward-looking or in-progress phrasing that
// suggests work without confirming it happened.
var impliedDone = regexp.MustCompile(`\b(should be done|will ship|plan to|planning to|going to|started|working on|in progress|almost)\b`)

// explicitPlan matches concrete, committed planning language.
var explicitPlan = regexp.MustCompile(`\b(plan|steps?|implement|rollout|roll out|migrate|refactor|introduce|set up|wire up)\b`)

// hedging marks speculative language that lowers trust.
var hedging = regexp.MustCompile(`\b(maybe|might|could|possibly|consider|probably|unsure|not sure)\b`)

// contradiction marks claims that previously finished work is undone.
var contradiction = regexp.MustCompile(`\b(reverted|rolled back|broken again|reopened|regressed|still failing|undone)\b`)

// ScoreArtifact computes a numeric confidence for an artifact from
// signal explicitness, plan concreteness, hard tool evidence, recency
// and corroboration across independent artifacts. The score is
// deterministic; no model is involved.
func ScoreArtifact(a extract.Artifact, corroboration int, now time.Time) float64 {
	text := strings.ToLower(a.Summary + " " + a.Content)
	score := 0.5

	if explicitDone.MatchString(text) {
		score += 0.25
	}
	if hedging.MatchString(text) {
		score -= 0.15
	}
	if PlanExplicit(a) {
		score += 0.35
	}
	if a.ToolVerified {
		score += 0.15
	}

	age := now.Sub(a.ExtractedAt)
	switch {
	case age < 24*time.Hour:
		score += 0.10
	case age < 7*24*time.Hour:
		score += 0.05
	case age > 30*24*time.Hour:
		score -= 0.10
	}

	bonus := 0.05 * float64(corroboration)
	if bonus > 0.15 {
		bonus = 0.15
	}
	score += bonus

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Band converts a numeric score to its confidence band.
func Band(score float64) Confidence {
	switch {
	case score > highThreshold:
		return ConfidenceHigh
	case score >= lowThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// PlanExplicit reports whether a plan artifact commits to concrete
// steps. Hedged plans are speculation, not commitments, and other
// artifact types never qualify.
func PlanExplicit(a extract.Artifact) bool {
	if a.Type != extract.ArtifactPlan {
		return false
	}
	text := strings.ToLower(a.Title + " " + a.Summary + " " + a.Content)
	return explicitPlan.MatchString(text) && !hedging.MatchString(text)
}

// ClaimsCompletion reports whether the artifact asserts work finished,
// explicitly or by implication.
func ClaimsCompletion(a extract.Artifact) (claims, explicit bool) {
	text := strings.ToLower(a.Summary + " " + a.Content)
	if explicitDone.MatchString(text) {
		return true, true
	}
	if impliedDone.MatchString(text) {
		return true, false
	}
	return false, false
}

// ClaimsContradiction reports whether the artifact asserts that
// previously completed work has come undone.
func ClaimsContradiction(a extract.Artifact) bool {
	return contradiction.MatchString(strings.ToLower(a.Summary + " " + a.Content))
}

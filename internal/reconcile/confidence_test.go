package reconcile

import (
	"testing"
	"time"

	"github.com/kortfolk/chronicle/internal/extract"
)

func artifactWith(summary string, toolVerified bool, age time.Duration) extract.Artifact {
	return extract.Artifact{
		Type:         extract.ArtifactPlan,
		Title:        "test artifact",
		Summary:      summary,
		ToolVerified: toolVerified,
		ExtractedAt:  time.Now().UTC().Add(-age),
	}
}

func TestScoreArtifactSignals(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name     string
		artifact extract.Artifact
		corr     int
		wantBand Confidence
	}{
		{
			name:     "explicit claim with tool evidence scores high",
			artifact: artifactWith("deployed the migration and verified the rollout", true, time.Hour),
			corr:     1,
			wantBand: ConfidenceHigh,
		},
		{
			name:     "hedged claim scores low",
			artifact: artifactWith("maybe we could consider splitting the worker", false, 40*24*time.Hour),
			wantBand: ConfidenceLow,
		},
		{
			name:     "plain recent statement lands medium",
			artifact: artifactWith("the cache layer reads through to the primary", false, time.Hour),
			wantBand: ConfidenceMedium,
		},
		{
			name:     "concrete plan scores high",
			artifact: artifactWith("plan: instrument the gateway, then wire up the collector", false, time.Hour),
			wantBand: ConfidenceHigh,
		},
		{
			name:     "hedged plan scores low",
			artifact: artifactWith("maybe we should plan a tracing rollout", false, time.Hour),
			wantBand: ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ScoreArtifact(tt.artifact, tt.corr, now)
			if got := Band(score); got != tt.wantBand {
				t.Errorf("Band(%.2f) = %s, want %s", score, got, tt.wantBand)
			}
		})
	}
}

func TestScoreCorroborationCapped(t *testing.T) {
	now := time.Now().UTC()
	a := artifactWith("a neutral statement of record", false, 10*24*time.Hour)

	three := ScoreArtifact(a, 3, now)
	ten := ScoreArtifact(a, 10, now)
	if three != ten {
		t.Errorf("corroboration bonus not capped: 3 -> %.2f, 10 -> %.2f", three, ten)
	}
	zero := ScoreArtifact(a, 0, now)
	if three-zero > 0.1501 {
		t.Errorf("corroboration bonus %.2f exceeds cap", three-zero)
	}
}

func TestScoreBounds(t *testing.T) {
	now := time.Now().UTC()

	high := ScoreArtifact(artifactWith("shipped, merged, deployed and verified everything", true, time.Minute), 10, now)
	if high > 1 {
		t.Errorf("score %.2f above 1", high)
	}
	low := ScoreArtifact(artifactWith("maybe, possibly, not sure about any of this", false, 90*24*time.Hour), 0, now)
	if low < 0 {
		t.Errorf("score %.2f below 0", low)
	}
}

func TestPlanExplicit(t *testing.T) {
	if !PlanExplicit(artifactWith("step 1 migrate the writers, step 2 cut over reads", false, 0)) {
		t.Error("concrete stepped plan not recognized as explicit")
	}
	if PlanExplicit(artifactWith("might be worth exploring a rewrite at some point", false, 0)) {
		t.Error("hedged musing recognized as explicit plan")
	}
	a := artifactWith("implement the new parser", false, 0)
	a.Type = extract.ArtifactAnalysis
	if PlanExplicit(a) {
		t.Error("non-plan artifact recognized as explicit plan")
	}
}

func TestClaimsCompletion(t *testing.T) {
	claims, explicit := ClaimsCompletion(artifactWith("merged the retry fix into main", false, 0))
	if !claims || !explicit {
		t.Errorf("explicit claim: claims=%v explicit=%v", claims, explicit)
	}

	claims, explicit = ClaimsCompletion(artifactWith("working on the retry fix, should be done soon", false, 0))
	if !claims || explicit {
		t.Errorf("implied claim: claims=%v explicit=%v", claims, explicit)
	}

	claims, _ = ClaimsCompletion(artifactWith("the retry logic uses exponential backoff", false, 0))
	if claims {
		t.Error("neutral description misread as completion claim")
	}
}

func TestClaimsContradiction(t *testing.T) {
	if !ClaimsContradiction(artifactWith("the auth change was rolled back after the incident", false, 0)) {
		t.Error("rollback not detected")
	}
	if ClaimsContradiction(artifactWith("shipped the auth change", false, 0)) {
		t.Error("plain completion misread as contradiction")
	}
}

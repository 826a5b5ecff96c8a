package executor

import "github.com/kortfolk/chronicle/internal/reconcile"

// Tier is the execution lane an action is routed into after policy and
// confidence checks.
type Tier string

const (
	TierApply        Tier = "apply"
	TierDefer        Tier = "defer"
	TierDropPolicy   Tier = "drop_policy"
	TierDropLowScore Tier = "drop_low_confidence"
)

// allowed is the closed set of action types the executor will ever
// perform. Anything outside it is dropped no matter how it scores.
var allowed = map[reconcile.ActionType]bool{
	reconcile.ActionCreateItem:       true,
	reconcile.ActionAppendNote:       true,
	reconcile.ActionMarkDone:         true,
	reconcile.ActionCreateDoc:        true,
	reconcile.ActionAppendDocSection: true,
	reconcile.ActionProposeFix:       true,
}

// denied names action types that are refused outright. The list exists
// so a future action type added to a plan by mistake is rejected by
// name, not just by absence from the allow list.
var denied = map[reconcile.ActionType]bool{
	"delete_item":          true,
	"delete_doc":           true,
	"modify_protected_doc": true,
	"send_email":           true,
	"modify_infra_config":  true,
}

// Classify routes an action into its tier. The policy check runs
// before the confidence check, so a denied action is dropped even at
// high confidence, and approval never overrides policy.
func Classify(action reconcile.Action, approved bool) Tier {
	if denied[action.Type] || !allowed[action.Type] {
		return TierDropPolicy
	}
	confidence := action.Confidence
	if approved {
		confidence = reconcile.ConfidenceHigh
	}
	switch confidence {
	case reconcile.ConfidenceHigh:
		return TierApply
	case reconcile.ConfidenceMedium:
		return TierDefer
	default:
		return TierDropLowScore
	}
}

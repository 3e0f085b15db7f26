package rebalance

import (
	"github.com/temirov/iterbot/internal/labels"
	"github.com/temirov/iterbot/internal/ledger"
)

// Eligibility carries the two independent move signals of one assignee.
type Eligibility struct {
	ByExcludingReviewed bool
	ByTotal             bool
}

// Qualifies reports whether either signal fired.
func (eligibility Eligibility) Qualifies() bool {
	return eligibility.ByExcludingReviewed || eligibility.ByTotal
}

// EligibilityEvaluator applies the workload thresholds to one assignee.
type EligibilityEvaluator struct {
	thresholdExcludingReviewed uint32
	thresholdTotal             uint32
}

// NewEligibilityEvaluator captures the thresholds of the options.
func NewEligibilityEvaluator(options *Options) EligibilityEvaluator {
	if options == nil {
		defaultOptions := DefaultOptions()
		options = &defaultOptions
	}
	return EligibilityEvaluator{
		thresholdExcludingReviewed: options.ThresholdExcludingReviewed,
		thresholdTotal:             options.ThresholdTotal,
	}
}

// Evaluate computes the move signals for an assignee holding points.
// Exempt issues never produce a signal.
func (evaluator EligibilityEvaluator) Evaluate(classification labels.Classification, points ledger.Points) Eligibility {
	if classification.Exempt {
		return Eligibility{}
	}
	return Eligibility{
		ByExcludingReviewed: !classification.NeedsReview && points.ExcludingReviewed >= evaluator.thresholdExcludingReviewed,
		ByTotal:             points.Total >= evaluator.thresholdTotal,
	}
}

package labels

import "strings"

const (
	priorityMinorLabelConstant   = "priority::Minor"
	priorityTrivialLabelConstant = "priority::Trivial"
	statusToReviewLabelConstant  = "status::to-review"
	statusToTestLabelConstant    = "status::to-test"
	releaseScopedPrefixConstant  = "release::"
	customerScopedPrefixConstant = "customer::"
)

var (
	lowPriorityLabels = map[string]struct{}{
		priorityMinorLabelConstant:   {},
		priorityTrivialLabelConstant: {},
	}
	reviewStatusLabels = map[string]struct{}{
		statusToReviewLabelConstant: {},
		statusToTestLabelConstant:   {},
	}
	exemptLabelPrefixes = []string{
		releaseScopedPrefixConstant,
		customerScopedPrefixConstant,
	}
)

// Classification captures the label-derived facts used by rebalancing.
type Classification struct {
	LowPriority bool
	Exempt      bool
	NeedsReview bool
}

// Classifier evaluates issue label titles.
type Classifier struct{}

// Classify derives a Classification from label titles. Order is irrelevant
// and an empty set yields the zero Classification.
func (Classifier) Classify(labelTitles []string) Classification {
	classification := Classification{}
	for _, labelTitle := range labelTitles {
		if _, isLowPriority := lowPriorityLabels[labelTitle]; isLowPriority {
			classification.LowPriority = true
		}
		if _, isReviewStatus := reviewStatusLabels[labelTitle]; isReviewStatus {
			classification.NeedsReview = true
		}
		if hasExemptPrefix(labelTitle) {
			classification.Exempt = true
		}
	}
	return classification
}

func hasExemptPrefix(labelTitle string) bool {
	for _, exemptPrefix := range exemptLabelPrefixes {
		if strings.HasPrefix(labelTitle, exemptPrefix) {
			return true
		}
	}
	return false
}

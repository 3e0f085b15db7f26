package rebalance

import "strings"

const (
	// DefaultThresholdExcludingReviewedConstant is the excluding-reviewed workload at which low-priority issues move.
	DefaultThresholdExcludingReviewedConstant uint32 = 15
	// DefaultThresholdTotalConstant is the total workload at which low-priority issues move.
	DefaultThresholdTotalConstant uint32 = 25
)

// AssigneeAllowlist restricts a run to the listed developers. A nil allowlist admits everyone.
type AssigneeAllowlist map[string]struct{}

// NewAssigneeAllowlist builds an allowlist from usernames, ignoring blanks.
// It returns nil when no username remains so the run is unfiltered.
func NewAssigneeAllowlist(usernames []string) AssigneeAllowlist {
	allowlist := make(AssigneeAllowlist, len(usernames))
	for _, username := range usernames {
		trimmedUsername := strings.TrimSpace(username)
		if len(trimmedUsername) == 0 {
			continue
		}
		allowlist[trimmedUsername] = struct{}{}
	}
	if len(allowlist) == 0 {
		return nil
	}
	return allowlist
}

// Allows reports whether the developer takes part in the run.
func (allowlist AssigneeAllowlist) Allows(developer string) bool {
	if allowlist == nil {
		return true
	}
	_, listed := allowlist[developer]
	return listed
}

// Options holds the policy of one run.
type Options struct {
	AssigneeAllowlist          AssigneeAllowlist
	ThresholdExcludingReviewed uint32
	ThresholdTotal             uint32
}

// DefaultOptions returns an unfiltered policy with the standard thresholds.
func DefaultOptions() Options {
	return Options{
		AssigneeAllowlist:          nil,
		ThresholdExcludingReviewed: DefaultThresholdExcludingReviewedConstant,
		ThresholdTotal:             DefaultThresholdTotalConstant,
	}
}

// Validate rejects zero thresholds, which would move every low-priority issue.
func (options *Options) Validate() error {
	if options == nil {
		return InvalidInputError{FieldName: optionsFieldNameConstant, Message: optionsMissingMessageConstant}
	}
	if options.ThresholdExcludingReviewed == 0 {
		return InvalidInputError{FieldName: thresholdExcludingReviewedFieldConstant, Message: thresholdPositiveMessageConstant}
	}
	if options.ThresholdTotal == 0 {
		return InvalidInputError{FieldName: thresholdTotalFieldConstant, Message: thresholdPositiveMessageConstant}
	}
	return nil
}

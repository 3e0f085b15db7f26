package rebalance

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/iterbot/internal/gitlab"
	"github.com/temirov/iterbot/internal/labels"
	"github.com/temirov/iterbot/internal/ledger"
)

const (
	issueScheduledMessageConstant        = "Issue scheduled for next iteration"
	issueKeptMessageConstant             = "Issue kept in current iteration"
	workloadAccumulatedMessageConstant   = "Workload accumulated"
	logFieldIssueURLConstant             = "issue_url"
	logFieldProjectPathConstant          = "project_path"
	logFieldIssueIIDConstant             = "iid"
	logFieldWeightConstant               = "weight"
	logFieldDeveloperConstant            = "developer"
	logFieldByExcludingReviewedConstant  = "by_excluding_reviewed"
	logFieldByTotalConstant              = "by_total"
	logFieldLowPriorityConstant          = "low_priority"
	logFieldExemptConstant               = "exempt"
	logFieldDeveloperCountConstant       = "developer_count"
	logFieldIssueCountConstant           = "issue_count"
	logFieldMoveCountConstant            = "move_count"
	namespaceResolutionFailedTemplate    = "unable to address issue %s: %w"
	plannerOptionsMissingMessageConstant = "planner options not configured"
)

// WorkloadLedger is the per-developer accumulator the planner drives.
type WorkloadLedger interface {
	Ensure(developer string)
	Add(developer string, weight uint32, countExcludingReviewed bool)
	Subtract(developer string, weight uint32, subtractExcludingReviewed bool)
	Snapshot(developer string) (ledger.Points, bool)
	Entries() []ledger.Entry
}

// ClassifiedIssue pairs an issue with the facts derived from its labels.
type ClassifiedIssue struct {
	Issue          gitlab.Issue
	Classification labels.Classification
}

// Decision records the outcome of evaluating one issue.
type Decision struct {
	Move             bool
	DecidingAssignee string
	Eligibility      Eligibility
}

// MoveCandidate is an issue slated for the next iteration.
type MoveCandidate struct {
	ProjectPath      string
	IID              string
	WebURL           string
	Weight           uint32
	DecidingAssignee string
	Eligibility      Eligibility
}

// Planner runs the accumulation and evaluation passes over one iteration's issues.
type Planner struct {
	logger     *zap.Logger
	ledger     WorkloadLedger
	options    *Options
	classifier labels.Classifier
	evaluator  EligibilityEvaluator
	namespaces NamespaceResolver
}

// NewPlanner constructs a Planner around a ledger and the run options.
func NewPlanner(logger *zap.Logger, workloadLedger WorkloadLedger, options *Options, namespaces NamespaceResolver) (*Planner, error) {
	if workloadLedger == nil {
		return nil, ErrWorkloadLedgerNotConfigured
	}
	if options == nil {
		return nil, InvalidInputError{FieldName: optionsFieldNameConstant, Message: plannerOptionsMissingMessageConstant}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		logger:     logger,
		ledger:     workloadLedger,
		options:    options,
		classifier: labels.Classifier{},
		evaluator:  NewEligibilityEvaluator(options),
		namespaces: namespaces,
	}, nil
}

// Plan classifies the issues, accumulates every workload and only then
// evaluates each issue, retracting the weight of those scheduled to move.
func (planner *Planner) Plan(issues []gitlab.Issue) ([]MoveCandidate, error) {
	classifiedIssues := planner.Classify(issues)
	planner.Accumulate(classifiedIssues)
	return planner.Evaluate(classifiedIssues)
}

// Classify derives label facts for every issue.
func (planner *Planner) Classify(issues []gitlab.Issue) []ClassifiedIssue {
	classifiedIssues := make([]ClassifiedIssue, 0, len(issues))
	for _, issue := range issues {
		classifiedIssues = append(classifiedIssues, ClassifiedIssue{
			Issue:          issue,
			Classification: planner.classifier.Classify(issue.Labels),
		})
	}
	return classifiedIssues
}

// Accumulate adds every issue's weight to each allowed assignee. Issues under
// review count toward the total only.
func (planner *Planner) Accumulate(classifiedIssues []ClassifiedIssue) {
	for _, classifiedIssue := range classifiedIssues {
		countExcludingReviewed := !classifiedIssue.Classification.NeedsReview
		for _, assignee := range classifiedIssue.Issue.Assignees {
			if !planner.options.AssigneeAllowlist.Allows(assignee) {
				continue
			}
			planner.ledger.Ensure(assignee)
			planner.ledger.Add(assignee, classifiedIssue.Issue.Weight, countExcludingReviewed)
		}
	}

	planner.logger.Debug(
		workloadAccumulatedMessageConstant,
		zap.Int(logFieldIssueCountConstant, len(classifiedIssues)),
		zap.Int(logFieldDeveloperCountConstant, len(planner.ledger.Entries())),
	)
}

// Evaluate decides each issue against the accumulated ledger. Every issue that
// moves is appended to the result and its weight is retracted from all allowed
// assignees using the deciding assignee's signal.
func (planner *Planner) Evaluate(classifiedIssues []ClassifiedIssue) ([]MoveCandidate, error) {
	moveCandidates := make([]MoveCandidate, 0)
	for _, classifiedIssue := range classifiedIssues {
		issue := classifiedIssue.Issue
		decision := planner.Decide(classifiedIssue)
		if !decision.Move {
			planner.logger.Debug(
				issueKeptMessageConstant,
				zap.String(logFieldIssueURLConstant, issue.WebURL),
				zap.Bool(logFieldLowPriorityConstant, classifiedIssue.Classification.LowPriority),
				zap.Bool(logFieldExemptConstant, classifiedIssue.Classification.Exempt),
			)
			continue
		}

		projectPath, resolutionError := planner.namespaces.Resolve(issue.ProjectURL)
		if resolutionError != nil {
			return nil, fmt.Errorf(namespaceResolutionFailedTemplate, issue.IID, resolutionError)
		}

		moveCandidates = append(moveCandidates, MoveCandidate{
			ProjectPath:      projectPath,
			IID:              issue.IID,
			WebURL:           issue.WebURL,
			Weight:           issue.Weight,
			DecidingAssignee: decision.DecidingAssignee,
			Eligibility:      decision.Eligibility,
		})

		for _, assignee := range issue.Assignees {
			if !planner.options.AssigneeAllowlist.Allows(assignee) {
				continue
			}
			planner.ledger.Subtract(assignee, issue.Weight, decision.Eligibility.ByExcludingReviewed)
		}

		planner.logger.Info(
			issueScheduledMessageConstant,
			zap.String(logFieldIssueURLConstant, issue.WebURL),
			zap.String(logFieldProjectPathConstant, projectPath),
			zap.String(logFieldIssueIIDConstant, issue.IID),
			zap.Uint32(logFieldWeightConstant, issue.Weight),
			zap.String(logFieldDeveloperConstant, decision.DecidingAssignee),
			zap.Bool(logFieldByExcludingReviewedConstant, decision.Eligibility.ByExcludingReviewed),
			zap.Bool(logFieldByTotalConstant, decision.Eligibility.ByTotal),
		)
	}

	return moveCandidates, nil
}

// Decide applies the first-match rule: allowed assignees are evaluated in
// order and the first one with a signal decides the issue. Only low-priority
// issues can move.
func (planner *Planner) Decide(classifiedIssue ClassifiedIssue) Decision {
	if !classifiedIssue.Classification.LowPriority {
		return Decision{}
	}
	for _, assignee := range classifiedIssue.Issue.Assignees {
		if !planner.options.AssigneeAllowlist.Allows(assignee) {
			continue
		}
		points, _ := planner.ledger.Snapshot(assignee)
		eligibility := planner.evaluator.Evaluate(classifiedIssue.Classification, points)
		if eligibility.Qualifies() {
			return Decision{Move: true, DecidingAssignee: assignee, Eligibility: eligibility}
		}
	}
	return Decision{}
}

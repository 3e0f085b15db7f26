package rebalance

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/iterbot/internal/gitlab"
	"github.com/temirov/iterbot/internal/ledger"
	"github.com/temirov/iterbot/internal/utils"
)

const (
	iterationsResolvedMessageConstant  = "Iterations resolved"
	rebalancePlannedMessageConstant    = "Rebalance planned"
	dryRunSkipMessageConstant          = "Dry run enabled; batch not submitted"
	logFieldGroupConstant              = "group"
	logFieldCurrentIterationConstant   = "current_iteration_id"
	logFieldCurrentStartDateConstant   = "current_start_date"
	logFieldCurrentDueDateConstant     = "current_due_date"
	logFieldNextIterationConstant      = "next_iteration_id"
	logFieldNextStartDateConstant      = "next_start_date"
	logFieldNextDueDateConstant        = "next_due_date"
	logFieldDryRunConstant             = "dry_run"
	iterationLogDateLayoutConstant     = "2006-01-02"
	iterationLogDateUnsetValueConstant = "unset"
	summaryDeveloperCountFieldConstant = "developer_count"
	rebalanceCompletedMessageConstant  = "Rebalance completed"
)

// IterationSource lists the open iterations of a group.
type IterationSource interface {
	FetchOpenIterations(executionContext context.Context, group string) ([2]gitlab.Iteration, error)
}

// IssueSource lists the open issues planned for an iteration.
type IssueSource interface {
	FetchIterationIssues(executionContext context.Context, group string, iterationID int64) ([]gitlab.Issue, error)
}

// LedgerFactory creates the ledger for one run.
type LedgerFactory func() WorkloadLedger

// ServiceDependencies describes required collaborators for a rebalance run.
type ServiceDependencies struct {
	Logger          *zap.Logger
	IterationSource IterationSource
	IssueSource     IssueSource
	MutationSink    MutationSink
	Output          io.Writer
	LedgerFactory   LedgerFactory
}

// RunOptions configures one rebalance run.
type RunOptions struct {
	Host         string
	Group        string
	Options      Options
	DryRun       bool
	ReportFormat ReportFormat
}

// RunResult captures the observable outcome of a run.
type RunResult struct {
	Group            string
	CurrentIteration gitlab.Iteration
	NextIteration    gitlab.Iteration
	IssueCount       int
	Moves            []MoveCandidate
	Outcomes         []gitlab.IterationUpdateOutcome
	Ledger           []ledger.Entry
	DryRun           bool
}

// Service orchestrates fetching, planning, submitting and reporting.
type Service struct {
	logger          *zap.Logger
	iterationSource IterationSource
	issueSource     IssueSource
	batchMover      *BatchMover
	output          io.Writer
	ledgerFactory   LedgerFactory
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.IterationSource == nil {
		return nil, ErrIterationSourceNotConfigured
	}
	if dependencies.IssueSource == nil {
		return nil, ErrIssueSourceNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	batchMover, batchMoverError := NewBatchMover(logger, dependencies.MutationSink)
	if batchMoverError != nil {
		return nil, batchMoverError
	}

	output := dependencies.Output
	if output == nil {
		output = io.Discard
	}

	ledgerFactory := dependencies.LedgerFactory
	if ledgerFactory == nil {
		ledgerFactory = func() WorkloadLedger {
			return ledger.New()
		}
	}

	return &Service{
		logger:          logger,
		iterationSource: dependencies.IterationSource,
		issueSource:     dependencies.IssueSource,
		batchMover:      batchMover,
		output:          utils.NewFlushingWriter(output),
		ledgerFactory:   ledgerFactory,
	}, nil
}

// Execute performs one rebalance run. Configuration problems are returned
// before any request is made; later failures are wrapped in a PhaseError.
// The batch is submitted only after both planning passes complete.
func (service *Service) Execute(executionContext context.Context, runOptions RunOptions) (RunResult, error) {
	group := strings.TrimSpace(runOptions.Group)
	if len(group) == 0 {
		return RunResult{}, InvalidInputError{FieldName: groupFieldNameConstant, Message: requiredValueMessageConstant}
	}
	namespaces, namespaceError := NewNamespaceResolver(runOptions.Host)
	if namespaceError != nil {
		return RunResult{}, namespaceError
	}
	options := runOptions.Options
	if validationError := options.Validate(); validationError != nil {
		return RunResult{}, validationError
	}

	result := RunResult{Group: group, DryRun: runOptions.DryRun}

	iterations, iterationsError := service.iterationSource.FetchOpenIterations(executionContext, group)
	if iterationsError != nil {
		return RunResult{}, PhaseError{Phase: PhaseFetchIterations, Cause: iterationsError}
	}
	result.CurrentIteration = iterations[0]
	result.NextIteration = iterations[1]

	service.logger.Info(
		iterationsResolvedMessageConstant,
		zap.String(logFieldGroupConstant, group),
		zap.Int64(logFieldCurrentIterationConstant, result.CurrentIteration.ID),
		zap.String(logFieldCurrentStartDateConstant, formatIterationDate(result.CurrentIteration.StartDate)),
		zap.String(logFieldCurrentDueDateConstant, formatIterationDate(result.CurrentIteration.DueDate)),
		zap.Int64(logFieldNextIterationConstant, result.NextIteration.ID),
		zap.String(logFieldNextStartDateConstant, formatIterationDate(result.NextIteration.StartDate)),
		zap.String(logFieldNextDueDateConstant, formatIterationDate(result.NextIteration.DueDate)),
	)

	issues, issuesError := service.issueSource.FetchIterationIssues(executionContext, group, result.CurrentIteration.ID)
	if issuesError != nil {
		return RunResult{}, PhaseError{Phase: PhaseFetchIssues, Cause: issuesError}
	}
	result.IssueCount = len(issues)

	workloadLedger := service.ledgerFactory()
	planner, plannerError := NewPlanner(service.logger, workloadLedger, &options, namespaces)
	if plannerError != nil {
		return RunResult{}, PhaseError{Phase: PhasePlanMoves, Cause: plannerError}
	}
	moves, planError := planner.Plan(issues)
	if planError != nil {
		return RunResult{}, PhaseError{Phase: PhasePlanMoves, Cause: planError}
	}
	result.Moves = moves

	service.logger.Info(
		rebalancePlannedMessageConstant,
		zap.String(logFieldGroupConstant, group),
		zap.Int(logFieldIssueCountConstant, len(issues)),
		zap.Int(logFieldMoveCountConstant, len(moves)),
		zap.Bool(logFieldDryRunConstant, runOptions.DryRun),
	)

	if runOptions.DryRun {
		service.logger.Info(dryRunSkipMessageConstant, zap.Int(logFieldMoveCountConstant, len(moves)))
	} else {
		outcomes, submitError := service.batchMover.Submit(executionContext, moves, result.NextIteration.ID)
		if submitError != nil {
			return RunResult{}, PhaseError{Phase: PhaseSubmitMoves, Cause: submitError}
		}
		result.Outcomes = outcomes
	}

	result.Ledger = workloadLedger.Entries()

	if reportError := NewSummaryWriter(runOptions.ReportFormat).Write(service.output, result); reportError != nil {
		return result, PhaseError{Phase: PhaseWriteReport, Cause: reportError}
	}

	service.logger.Debug(
		rebalanceCompletedMessageConstant,
		zap.String(logFieldGroupConstant, group),
		zap.Int(summaryDeveloperCountFieldConstant, len(result.Ledger)),
	)

	return result, nil
}

func formatIterationDate(date time.Time) string {
	if date.IsZero() {
		return iterationLogDateUnsetValueConstant
	}
	return date.Format(iterationLogDateLayoutConstant)
}

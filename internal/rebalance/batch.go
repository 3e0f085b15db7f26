package rebalance

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/iterbot/internal/gitlab"
)

const (
	noIssuesToMoveMessageConstant   = "No issues to move"
	issueMovedMessageConstant       = "Issue moved to next iteration"
	issueMoveFailedMessageConstant  = "Issue could not be moved"
	batchSubmittedMessageConstant   = "Batch submitted"
	logFieldTargetIterationConstant = "target_iteration_id"
	logFieldFailedCountConstant     = "failed_count"
	logFieldMovedCountConstant      = "moved_count"
	logFieldErrorsConstant          = "errors"
	outcomeErrorSeparatorConstant   = "; "
)

// MutationSink applies iteration changes in one request.
type MutationSink interface {
	SetIssueIterations(executionContext context.Context, updates []gitlab.IterationUpdate, iterationID int64) ([]gitlab.IterationUpdateOutcome, error)
}

// BatchMover submits the move list as one batch and reports per-item outcomes.
type BatchMover struct {
	logger *zap.Logger
	sink   MutationSink
}

// NewBatchMover constructs a BatchMover.
func NewBatchMover(logger *zap.Logger, sink MutationSink) (*BatchMover, error) {
	if sink == nil {
		return nil, ErrMutationSinkNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchMover{logger: logger, sink: sink}, nil
}

// Submit moves every candidate to the target iteration. An empty list is a
// no-op. Failed items are logged as warnings and returned in the outcomes;
// only a failure of the batch itself is an error.
func (mover *BatchMover) Submit(executionContext context.Context, candidates []MoveCandidate, targetIterationID int64) ([]gitlab.IterationUpdateOutcome, error) {
	if len(candidates) == 0 {
		mover.logger.Info(noIssuesToMoveMessageConstant)
		return nil, nil
	}

	updates := make([]gitlab.IterationUpdate, 0, len(candidates))
	for _, candidate := range candidates {
		updates = append(updates, gitlab.IterationUpdate{ProjectPath: candidate.ProjectPath, IID: candidate.IID})
	}

	outcomes, submitError := mover.sink.SetIssueIterations(executionContext, updates, targetIterationID)
	if submitError != nil {
		return nil, submitError
	}

	failedCount := 0
	for outcomeIndex, outcome := range outcomes {
		issueURL := ""
		if outcomeIndex < len(candidates) {
			issueURL = candidates[outcomeIndex].WebURL
		}
		if !outcome.Moved {
			failedCount++
			mover.logger.Warn(
				issueMoveFailedMessageConstant,
				zap.String(logFieldIssueURLConstant, issueURL),
				zap.String(logFieldProjectPathConstant, outcome.ProjectPath),
				zap.String(logFieldIssueIIDConstant, outcome.IID),
				zap.String(logFieldErrorsConstant, strings.Join(outcome.Errors, outcomeErrorSeparatorConstant)),
			)
			continue
		}
		mover.logger.Info(
			issueMovedMessageConstant,
			zap.String(logFieldIssueURLConstant, issueURL),
			zap.String(logFieldProjectPathConstant, outcome.ProjectPath),
			zap.String(logFieldIssueIIDConstant, outcome.IID),
		)
	}

	mover.logger.Info(
		batchSubmittedMessageConstant,
		zap.Int64(logFieldTargetIterationConstant, targetIterationID),
		zap.Int(logFieldMovedCountConstant, len(outcomes)-failedCount),
		zap.Int(logFieldFailedCountConstant, failedCount),
	)

	return outcomes, nil
}

package rebalance

import (
	"errors"
	"fmt"
)

const (
	invalidInputErrorTemplateConstant        = "%s: %s"
	phaseErrorTemplateConstant               = "%s phase failed: %v"
	namespaceResolutionErrorTemplateConstant = "project URL %q is not under host %q"
	iterationSourceMissingMessageConstant    = "iteration source not configured"
	issueSourceMissingMessageConstant        = "issue source not configured"
	mutationSinkMissingMessageConstant       = "mutation sink not configured"
	workloadLedgerMissingMessageConstant     = "workload ledger not configured"
	requiredValueMessageConstant             = "value required"
	thresholdPositiveMessageConstant         = "must be greater than zero"
	unsupportedReportFormatTemplateConstant  = "unsupported report format %q"
	reportFormatFieldNameConstant            = "report_format"
	groupFieldNameConstant                   = "group"
	hostFieldNameConstant                    = "host"
	thresholdExcludingReviewedFieldConstant  = "thresholds.excluding_reviewed"
	thresholdTotalFieldConstant              = "thresholds.total"
	optionsFieldNameConstant                 = "options"
	optionsMissingMessageConstant            = "options not configured"
	reportWriterMissingMessageConstant       = "report output not configured"
	unexpectedArgumentsErrorMessageConstant  = "rebalance does not accept positional arguments"
	commandExecutionErrorTemplateConstant    = "rebalance failed: %w"
	tokenSourceParseErrorTemplateConstant    = "invalid token source: %w"
	tokenResolutionErrorTemplateConstant     = "unable to resolve GitLab token: %w"
	reportFormatParseErrorTemplateConstant   = "invalid report format: %w"
	clientCreationErrorTemplateConstant      = "unable to create GitLab client: %w"
	reportEncodingErrorTemplateConstant      = "unable to encode report: %w"
	reportWriteErrorTemplateConstant         = "unable to write report: %w"
)

// Phase names a stage of a rebalance run.
type Phase string

// Phase enumerations.
const (
	PhaseFetchIterations Phase = Phase("fetch_iterations")
	PhaseFetchIssues     Phase = Phase("fetch_issues")
	PhasePlanMoves       Phase = Phase("plan_moves")
	PhaseSubmitMoves     Phase = Phase("submit_moves")
	PhaseWriteReport     Phase = Phase("write_report")
)

var (
	// ErrIterationSourceNotConfigured indicates a service without an iteration source.
	ErrIterationSourceNotConfigured = errors.New(iterationSourceMissingMessageConstant)
	// ErrIssueSourceNotConfigured indicates a service without an issue source.
	ErrIssueSourceNotConfigured = errors.New(issueSourceMissingMessageConstant)
	// ErrMutationSinkNotConfigured indicates a service without a mutation sink.
	ErrMutationSinkNotConfigured = errors.New(mutationSinkMissingMessageConstant)
	// ErrWorkloadLedgerNotConfigured indicates a planner without a ledger.
	ErrWorkloadLedgerNotConfigured = errors.New(workloadLedgerMissingMessageConstant)
	// ErrReportOutputNotConfigured indicates a report writer without an output.
	ErrReportOutputNotConfigured = errors.New(reportWriterMissingMessageConstant)
)

// InvalidInputError describes rebalance option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// PhaseError reports the run phase that failed.
type PhaseError struct {
	Phase Phase
	Cause error
}

// Error describes the failed phase.
func (phaseError PhaseError) Error() string {
	return fmt.Sprintf(phaseErrorTemplateConstant, phaseError.Phase, phaseError.Cause)
}

// Unwrap exposes the underlying cause.
func (phaseError PhaseError) Unwrap() error {
	return phaseError.Cause
}

// NamespaceResolutionError reports a project URL outside the configured host.
type NamespaceResolutionError struct {
	ProjectURL string
	Host       string
}

// Error describes the unresolvable project URL.
func (resolutionError NamespaceResolutionError) Error() string {
	return fmt.Sprintf(namespaceResolutionErrorTemplateConstant, resolutionError.ProjectURL, resolutionError.Host)
}

package gitlab

import (
	"errors"
	"fmt"
	"strings"
)

const (
	httpClientNotConfiguredMessageConstant  = "gitlab http client not configured"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	unexpectedStatusErrorTemplateConstant   = "%s returned status %d: %s"
	graphQLErrorTemplateConstant            = "%s returned GraphQL errors: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	insufficientIterationsTemplateConstant  = "group %s has %d open iterations, at least 2 required"
	graphQLMessageSeparatorConstant         = "; "
	requiredValueMessageConstant            = "value required"
)

// OperationName describes a named GitLab API interaction supported by the client.
type OperationName string

// Operation name enumerations.
const (
	OperationFetchIterations OperationName = OperationName("FetchOpenIterations")
	OperationFetchIssues     OperationName = OperationName("FetchIterationIssues")
	OperationSetIterations   OperationName = OperationName("SetIssueIterations")
)

var (
	// ErrHTTPClientNotConfigured indicates the client was constructed without an HTTP client.
	ErrHTTPClientNotConfigured = errors.New(httpClientNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps transport failures for GitLab operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates a response body that could not be decoded.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying decoding error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// UnexpectedStatusError reports a non-success HTTP status.
type UnexpectedStatusError struct {
	Operation  OperationName
	StatusCode int
	Body       string
}

// Error describes the status failure.
func (statusError UnexpectedStatusError) Error() string {
	return fmt.Sprintf(unexpectedStatusErrorTemplateConstant, statusError.Operation, statusError.StatusCode, statusError.Body)
}

// GraphQLError reports request-level errors returned in a GraphQL response.
type GraphQLError struct {
	Operation OperationName
	Messages  []string
}

// Error describes the GraphQL failure.
func (graphQLError GraphQLError) Error() string {
	return fmt.Sprintf(graphQLErrorTemplateConstant, graphQLError.Operation, strings.Join(graphQLError.Messages, graphQLMessageSeparatorConstant))
}

// InsufficientIterationsError reports a group with fewer than two open iterations.
type InsufficientIterationsError struct {
	Group string
	Count int
}

// Error describes the missing iterations.
func (iterationsError InsufficientIterationsError) Error() string {
	return fmt.Sprintf(insufficientIterationsTemplateConstant, iterationsError.Group, iterationsError.Count)
}

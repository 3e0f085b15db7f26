package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	mutationAliasTemplateConstant     = "m%d"
	mutationHeaderConstant            = "mutation BatchMoveIssues {\n"
	mutationFooterConstant            = "}"
	mutationFieldTemplateConstant     = "  %s: issueSetIteration(input: {projectPath: %s, iid: %s, iterationId: %s}) {\n    errors\n    issue { iid }\n  }\n"
	missingResultMessageConstant      = "no result returned for issue"
	missingIssueMessageConstant       = "issue missing from mutation result"
	iterationsSubmittedMessage        = "Iteration updates submitted"
	logFieldUpdateCountConstant       = "update_count"
	logFieldMovedCountConstant        = "moved_count"
	iterationUpdatesFieldNameConstant = "updates"
)

// IterationUpdate addresses one issue to move.
type IterationUpdate struct {
	ProjectPath string
	IID         string
}

// IterationUpdateOutcome reports the result of one update inside a batch.
type IterationUpdateOutcome struct {
	ProjectPath string
	IID         string
	Moved       bool
	Errors      []string
}

type setIterationPayload struct {
	Errors []string `json:"errors"`
	Issue  *struct {
		IID string `json:"iid"`
	} `json:"issue"`
}

type setIterationResponse struct {
	Data   map[string]*setIterationPayload `json:"data"`
	Errors []graphQLErrorEntry             `json:"errors"`
}

// MutationAlias names the aliased field carrying the update at index.
func MutationAlias(index int) string {
	return fmt.Sprintf(mutationAliasTemplateConstant, index)
}

// BuildSetIterationMutation renders one GraphQL document that moves every
// update to the iteration, one aliased issueSetIteration field per update.
func BuildSetIterationMutation(updates []IterationUpdate, iterationID int64) string {
	iterationLiteral := graphQLStringLiteral(IterationGlobalID(iterationID))

	var document strings.Builder
	document.WriteString(mutationHeaderConstant)
	for updateIndex, update := range updates {
		fmt.Fprintf(
			&document,
			mutationFieldTemplateConstant,
			MutationAlias(updateIndex),
			graphQLStringLiteral(update.ProjectPath),
			graphQLStringLiteral(update.IID),
			iterationLiteral,
		)
	}
	document.WriteString(mutationFooterConstant)
	return document.String()
}

// SetIssueIterations submits every update in a single request and reports
// per-update outcomes in input order. The request is never retried. Item
// failures inside a successful response are reported through outcomes rather
// than as an error.
func (client *Client) SetIssueIterations(executionContext context.Context, updates []IterationUpdate, iterationID int64) ([]IterationUpdateOutcome, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	if iterationID <= 0 {
		return nil, InvalidInputError{FieldName: iterationIDFieldNameConstant, Message: iterationIDPositiveMessage}
	}
	for _, update := range updates {
		if len(strings.TrimSpace(update.ProjectPath)) == 0 || len(strings.TrimSpace(update.IID)) == 0 {
			return nil, InvalidInputError{FieldName: iterationUpdatesFieldNameConstant, Message: requiredValueMessageConstant}
		}
	}

	request := graphQLRequest{Query: BuildSetIterationMutation(updates, iterationID)}

	var response setIterationResponse
	if submitError := client.execute(executionContext, OperationSetIterations, http.MethodPost, client.graphQLEndpoint(), request, &response); submitError != nil {
		return nil, submitError
	}

	if len(response.Data) == 0 {
		messages := graphQLMessages(response.Errors)
		if len(messages) == 0 {
			messages = []string{graphQLEmptyDataMessageConstant}
		}
		return nil, GraphQLError{Operation: OperationSetIterations, Messages: messages}
	}

	outcomes := make([]IterationUpdateOutcome, 0, len(updates))
	movedCount := 0
	for updateIndex, update := range updates {
		outcome := resolveOutcome(update, MutationAlias(updateIndex), response)
		if outcome.Moved {
			movedCount++
		}
		outcomes = append(outcomes, outcome)
	}

	client.logger.Debug(
		iterationsSubmittedMessage,
		zap.Int64(logFieldIterationIDConstant, iterationID),
		zap.Int(logFieldUpdateCountConstant, len(updates)),
		zap.Int(logFieldMovedCountConstant, movedCount),
	)

	return outcomes, nil
}

func resolveOutcome(update IterationUpdate, alias string, response setIterationResponse) IterationUpdateOutcome {
	outcome := IterationUpdateOutcome{ProjectPath: update.ProjectPath, IID: update.IID}

	payload := response.Data[alias]
	switch {
	case payload == nil:
		outcome.Errors = aliasErrorMessages(alias, response.Errors)
		if len(outcome.Errors) == 0 {
			outcome.Errors = []string{missingResultMessageConstant}
		}
	case len(payload.Errors) > 0:
		outcome.Errors = append([]string{}, payload.Errors...)
	case payload.Issue == nil:
		outcome.Errors = []string{missingIssueMessageConstant}
	default:
		outcome.Moved = true
	}

	return outcome
}

func aliasErrorMessages(alias string, entries []graphQLErrorEntry) []string {
	var messages []string
	for _, entry := range entries {
		if len(entry.Path) == 0 {
			continue
		}
		if pathHead, isString := entry.Path[0].(string); isString && pathHead == alias {
			messages = append(messages, entry.Message)
		}
	}
	return messages
}

func graphQLStringLiteral(value string) string {
	encodedValue, _ := json.Marshal(value)
	return string(encodedValue)
}

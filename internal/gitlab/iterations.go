package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	groupFieldNameConstant             = "group"
	iterationsEndpointTemplateConstant = "%s/api/v4/groups/%s/iterations?state=opened"
	iterationDateLayoutConstant        = "2006-01-02"
	iterationDateParseErrorTemplate    = "iteration %d has invalid %s %q: %w"
	iterationStartDateFieldConstant    = "start_date"
	iterationDueDateFieldConstant      = "due_date"
	iterationGlobalIDTemplateConstant  = "gid://gitlab/Iteration/%d"
	openIterationsFetchedMessage       = "Open iterations fetched"
	logFieldGroupConstant              = "group"
	logFieldIterationCountConstant     = "iteration_count"
	requiredOpenIterationCountConstant = 2
)

// Iteration is a time-boxed GitLab iteration.
type Iteration struct {
	ID        int64
	IID       int64
	Title     string
	StartDate time.Time
	DueDate   time.Time
	WebURL    string
}

// GlobalID renders the GraphQL global identifier of the iteration.
func (iteration Iteration) GlobalID() string {
	return IterationGlobalID(iteration.ID)
}

// IterationGlobalID renders the GraphQL global identifier for an iteration id.
func IterationGlobalID(iterationID int64) string {
	return fmt.Sprintf(iterationGlobalIDTemplateConstant, iterationID)
}

type iterationResponse struct {
	ID        int64  `json:"id"`
	IID       int64  `json:"iid"`
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	DueDate   string `json:"due_date"`
	WebURL    string `json:"web_url"`
}

// FetchOpenIterations returns the current and next open iterations of a group,
// ordered by start date. Fewer than two open iterations is an error.
func (client *Client) FetchOpenIterations(executionContext context.Context, group string) ([2]Iteration, error) {
	groupPath := strings.TrimSpace(group)
	if len(groupPath) == 0 {
		return [2]Iteration{}, InvalidInputError{FieldName: groupFieldNameConstant, Message: requiredValueMessageConstant}
	}

	endpoint := fmt.Sprintf(iterationsEndpointTemplateConstant, client.baseURL, url.PathEscape(groupPath))

	var responses []iterationResponse
	if fetchError := client.executeIdempotent(executionContext, OperationFetchIterations, http.MethodGet, endpoint, nil, &responses); fetchError != nil {
		return [2]Iteration{}, fetchError
	}

	client.logger.Debug(
		openIterationsFetchedMessage,
		zap.String(logFieldGroupConstant, groupPath),
		zap.Int(logFieldIterationCountConstant, len(responses)),
	)

	if len(responses) < requiredOpenIterationCountConstant {
		return [2]Iteration{}, InsufficientIterationsError{Group: groupPath, Count: len(responses)}
	}

	iterations := make([]Iteration, 0, len(responses))
	for _, response := range responses {
		iteration, conversionError := response.toIteration()
		if conversionError != nil {
			return [2]Iteration{}, ResponseDecodingError{Operation: OperationFetchIterations, Cause: conversionError}
		}
		iterations = append(iterations, iteration)
	}

	sort.SliceStable(iterations, func(leftIndex int, rightIndex int) bool {
		return iterations[leftIndex].StartDate.Before(iterations[rightIndex].StartDate)
	})

	return [2]Iteration{iterations[0], iterations[1]}, nil
}

func (response iterationResponse) toIteration() (Iteration, error) {
	startDate, startError := parseIterationDate(response.StartDate)
	if startError != nil {
		return Iteration{}, fmt.Errorf(iterationDateParseErrorTemplate, response.ID, iterationStartDateFieldConstant, response.StartDate, startError)
	}
	dueDate, dueError := parseIterationDate(response.DueDate)
	if dueError != nil {
		return Iteration{}, fmt.Errorf(iterationDateParseErrorTemplate, response.ID, iterationDueDateFieldConstant, response.DueDate, dueError)
	}
	return Iteration{
		ID:        response.ID,
		IID:       response.IID,
		Title:     response.Title,
		StartDate: startDate,
		DueDate:   dueDate,
		WebURL:    response.WebURL,
	}, nil
}

func parseIterationDate(value string) (time.Time, error) {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return time.Time{}, nil
	}
	return time.Parse(iterationDateLayoutConstant, trimmedValue)
}

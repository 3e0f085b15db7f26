package gitlab

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	iterationIssuesQueryConstant = `query GetIterationIssues($group: ID!, $iterId: [ID], $first: Int) {
  group(fullPath: $group) {
    projects(first: $first, includeSubgroups: true) {
      nodes {
        webUrl
        issues(state: opened, iterationId: $iterId, first: $first) {
          nodes {
            iid
            webUrl
            weight
            labels { nodes { title } }
            assignees { nodes { username } }
          }
        }
      }
    }
  }
}`
	groupVariableNameConstant     = "group"
	iterationVariableNameConstant = "iterId"
	pageSizeVariableNameConstant  = "first"
	iterationIssuesFetchedMessage = "Iteration issues fetched"
	logFieldProjectCountConstant  = "project_count"
	logFieldIssueCountConstant    = "issue_count"
	logFieldIterationIDConstant   = "iteration_id"
	iterationIDFieldNameConstant  = "iteration_id"
	iterationIDPositiveMessage    = "must be positive"
)

// Issue is an open issue planned for an iteration, flattened out of its project.
type Issue struct {
	IID        string
	WebURL     string
	ProjectURL string
	Weight     uint32
	Labels     []string
	Assignees  []string
}

type iterationIssuesResponse struct {
	Data struct {
		Group *struct {
			Projects struct {
				Nodes []projectNode `json:"nodes"`
			} `json:"projects"`
		} `json:"group"`
	} `json:"data"`
	Errors []graphQLErrorEntry `json:"errors"`
}

type projectNode struct {
	WebURL string `json:"webUrl"`
	Issues struct {
		Nodes []issueNode `json:"nodes"`
	} `json:"issues"`
}

type issueNode struct {
	IID    string `json:"iid"`
	WebURL string `json:"webUrl"`
	Weight *int64 `json:"weight"`
	Labels struct {
		Nodes []struct {
			Title string `json:"title"`
		} `json:"nodes"`
	} `json:"labels"`
	Assignees struct {
		Nodes []struct {
			Username string `json:"username"`
		} `json:"nodes"`
	} `json:"assignees"`
}

// FetchIterationIssues lists the open issues of every project in the group,
// subgroups included, that are planned for the iteration. Only the first page
// of projects and of issues per project is read.
func (client *Client) FetchIterationIssues(executionContext context.Context, group string, iterationID int64) ([]Issue, error) {
	groupPath := strings.TrimSpace(group)
	if len(groupPath) == 0 {
		return nil, InvalidInputError{FieldName: groupFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if iterationID <= 0 {
		return nil, InvalidInputError{FieldName: iterationIDFieldNameConstant, Message: iterationIDPositiveMessage}
	}

	request := graphQLRequest{
		Query: iterationIssuesQueryConstant,
		Variables: map[string]any{
			groupVariableNameConstant:     groupPath,
			iterationVariableNameConstant: []string{strconv.FormatInt(iterationID, 10)},
			pageSizeVariableNameConstant:  client.pageSize,
		},
	}

	var response iterationIssuesResponse
	if fetchError := client.executeIdempotent(executionContext, OperationFetchIssues, http.MethodPost, client.graphQLEndpoint(), request, &response); fetchError != nil {
		return nil, fetchError
	}

	if len(response.Errors) > 0 {
		return nil, GraphQLError{Operation: OperationFetchIssues, Messages: graphQLMessages(response.Errors)}
	}
	if response.Data.Group == nil {
		return nil, GraphQLError{Operation: OperationFetchIssues, Messages: []string{graphQLGroupMissingMessage}}
	}

	projects := response.Data.Group.Projects.Nodes
	issues := make([]Issue, 0)
	for _, project := range projects {
		for _, node := range project.Issues.Nodes {
			issues = append(issues, node.toIssue(project.WebURL))
		}
	}

	client.logger.Debug(
		iterationIssuesFetchedMessage,
		zap.String(logFieldGroupConstant, groupPath),
		zap.Int64(logFieldIterationIDConstant, iterationID),
		zap.Int(logFieldProjectCountConstant, len(projects)),
		zap.Int(logFieldIssueCountConstant, len(issues)),
	)

	return issues, nil
}

func (node issueNode) toIssue(projectURL string) Issue {
	labelTitles := make([]string, 0, len(node.Labels.Nodes))
	for _, label := range node.Labels.Nodes {
		labelTitles = append(labelTitles, label.Title)
	}
	assignees := make([]string, 0, len(node.Assignees.Nodes))
	for _, assignee := range node.Assignees.Nodes {
		assignees = append(assignees, assignee.Username)
	}
	return Issue{
		IID:        node.IID,
		WebURL:     node.WebURL,
		ProjectURL: projectURL,
		Weight:     normalizeWeight(node.Weight),
		Labels:     labelTitles,
		Assignees:  assignees,
	}
}

// normalizeWeight maps an absent weight to zero and clamps into uint32.
func normalizeWeight(weight *int64) uint32 {
	switch {
	case weight == nil || *weight <= 0:
		return 0
	case *weight >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(*weight)
	}
}

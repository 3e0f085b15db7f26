package rebalance_test

import (
	"context"
	"sync"

	"github.com/temirov/iterbot/internal/gitlab"
)

const (
	testHostConstant           = "https://gitlab.example.com"
	testGroupConstant          = "acme"
	testProjectURLConstant     = testHostConstant + "/acme/platform/api"
	testProjectPathConstant    = "acme/platform/api"
	testCurrentIterationID     = int64(101)
	testNextIterationID        = int64(102)
	developerAliceConstant     = "alice"
	developerBobConstant       = "bob"
	developerCarolConstant     = "carol"
	minorPriorityLabel         = "priority::Minor"
	trivialPriorityLabel       = "priority::Trivial"
	toReviewStatusLabel        = "status::to-review"
	customerExemptLabel        = "customer::acme"
	releaseExemptLabel         = "release::1.4"
	featureLabelConstant       = "type::feature"
	issueURLTemplateConstant   = testProjectURLConstant + "/-/issues/"
	otherHostProjectURL        = "https://gitlab.other.org/acme/platform/api"
	fetchFailureMessage        = "gitlab unavailable"
	submitFailureMessage       = "mutation rejected"
	itemFailureMessageConstant = "Iteration does not belong to group"
)

type iterationSourceStub struct {
	iterations [2]gitlab.Iteration
	err        error
	groups     []string
}

func (stub *iterationSourceStub) FetchOpenIterations(_ context.Context, group string) ([2]gitlab.Iteration, error) {
	stub.groups = append(stub.groups, group)
	return stub.iterations, stub.err
}

type issueSourceStub struct {
	issues       []gitlab.Issue
	err          error
	iterationIDs []int64
}

func (stub *issueSourceStub) FetchIterationIssues(_ context.Context, _ string, iterationID int64) ([]gitlab.Issue, error) {
	stub.iterationIDs = append(stub.iterationIDs, iterationID)
	return stub.issues, stub.err
}

type mutationSinkStub struct {
	mutex        sync.Mutex
	calls        [][]gitlab.IterationUpdate
	iterationIDs []int64
	failures     map[string][]string
	err          error
}

func (stub *mutationSinkStub) SetIssueIterations(_ context.Context, updates []gitlab.IterationUpdate, iterationID int64) ([]gitlab.IterationUpdateOutcome, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.calls = append(stub.calls, append([]gitlab.IterationUpdate(nil), updates...))
	stub.iterationIDs = append(stub.iterationIDs, iterationID)
	if stub.err != nil {
		return nil, stub.err
	}
	outcomes := make([]gitlab.IterationUpdateOutcome, 0, len(updates))
	for _, update := range updates {
		outcome := gitlab.IterationUpdateOutcome{ProjectPath: update.ProjectPath, IID: update.IID, Moved: true}
		if failureMessages, failed := stub.failures[update.IID]; failed {
			outcome.Moved = false
			outcome.Errors = failureMessages
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func testIterations() [2]gitlab.Iteration {
	return [2]gitlab.Iteration{
		{ID: testCurrentIterationID, Title: "Sprint 7"},
		{ID: testNextIterationID, Title: "Sprint 8"},
	}
}

func newTestIssue(iid string, weight uint32, labelTitles []string, assignees ...string) gitlab.Issue {
	return gitlab.Issue{
		IID:        iid,
		WebURL:     issueURLTemplateConstant + iid,
		ProjectURL: testProjectURLConstant,
		Weight:     weight,
		Labels:     labelTitles,
		Assignees:  assignees,
	}
}

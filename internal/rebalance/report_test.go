package rebalance_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/iterbot/internal/gitlab"
	"github.com/temirov/iterbot/internal/ledger"
	"github.com/temirov/iterbot/internal/rebalance"
)

type decodedReport struct {
	Group            string `yaml:"group"`
	DryRun           bool   `yaml:"dry_run"`
	CurrentIteration struct {
		ID        int64  `yaml:"id"`
		StartDate string `yaml:"start_date"`
	} `yaml:"current_iteration"`
	IssueCount int `yaml:"issue_count"`
	Moves      []struct {
		IID    string   `yaml:"iid"`
		Status string   `yaml:"status"`
		Errors []string `yaml:"errors"`
	} `yaml:"moves"`
	Developers []struct {
		Developer string `yaml:"developer"`
		Total     uint32 `yaml:"total"`
	} `yaml:"developers"`
}

func reportTestResult(dryRun bool) rebalance.RunResult {
	return rebalance.RunResult{
		Group:            "platform",
		CurrentIteration: gitlab.Iteration{ID: 101, Title: "Sprint 1", StartDate: time.Date(2026, time.October, 5, 0, 0, 0, 0, time.UTC)},
		NextIteration:    gitlab.Iteration{ID: 102, Title: "Sprint 2"},
		IssueCount:       4,
		Moves: []rebalance.MoveCandidate{
			{ProjectPath: "platform/api", IID: "1", Weight: 5, DecidingAssignee: "alice"},
			{ProjectPath: "platform/api", IID: "2", Weight: 3, DecidingAssignee: "alice"},
			{ProjectPath: "platform/web", IID: "3", Weight: 2, DecidingAssignee: "bob"},
		},
		Outcomes: []gitlab.IterationUpdateOutcome{
			{ProjectPath: "platform/api", IID: "1", Moved: true},
			{ProjectPath: "platform/api", IID: "2", Errors: []string{"Iteration is closed"}},
		},
		Ledger: []ledger.Entry{
			{Developer: "alice", Points: ledger.Points{ExcludingReviewed: 4, Total: 9}},
			{Developer: "bob", Points: ledger.Points{ExcludingReviewed: 0, Total: 12}},
		},
		DryRun: dryRun,
	}
}

func TestSummaryWriterText(testInstance *testing.T) {
	output := &bytes.Buffer{}
	require.NoError(testInstance, rebalance.NewSummaryWriter(rebalance.ReportFormatText).Write(output, reportTestResult(false)))
	require.Equal(testInstance, "alice: excluding reviewed 4, total 9\nbob: excluding reviewed 0, total 12\n", output.String())
}

func TestSummaryWriterYAMLStatuses(testInstance *testing.T) {
	testCases := []struct {
		name             string
		dryRun           bool
		expectedStatuses []string
	}{
		{name: "submitted", dryRun: false, expectedStatuses: []string{"moved", "failed", "failed"}},
		{name: "dry run", dryRun: true, expectedStatuses: []string{"planned", "planned", "planned"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			output := &bytes.Buffer{}
			require.NoError(testInstance, rebalance.NewSummaryWriter(rebalance.ReportFormatYAML).Write(output, reportTestResult(testCase.dryRun)))

			report := decodedReport{}
			require.NoError(testInstance, yaml.Unmarshal(output.Bytes(), &report))
			require.Equal(testInstance, "platform", report.Group)
			require.Equal(testInstance, testCase.dryRun, report.DryRun)
			require.Equal(testInstance, int64(101), report.CurrentIteration.ID)
			require.Equal(testInstance, "2026-10-05", report.CurrentIteration.StartDate)
			require.Equal(testInstance, 4, report.IssueCount)
			require.Len(testInstance, report.Developers, 2)
			require.Equal(testInstance, uint32(12), report.Developers[1].Total)

			statuses := make([]string, 0, len(report.Moves))
			for _, move := range report.Moves {
				statuses = append(statuses, move.Status)
			}
			require.Equal(testInstance, testCase.expectedStatuses, statuses)

			if !testCase.dryRun {
				require.Equal(testInstance, []string{"Iteration is closed"}, report.Moves[1].Errors)
				require.Equal(testInstance, []string{"no outcome reported"}, report.Moves[2].Errors)
			}
		})
	}
}

func TestSummaryWriterRequiresOutput(testInstance *testing.T) {
	writeError := rebalance.NewSummaryWriter(rebalance.ReportFormatText).Write(nil, reportTestResult(false))
	require.ErrorIs(testInstance, writeError, rebalance.ErrReportOutputNotConfigured)
}

package rebalance

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/iterbot/internal/gitlab"
)

const (
	reportLineTemplateConstant    = "%s: excluding reviewed %d, total %d\n"
	reportDateLayoutConstant      = "2006-01-02"
	reportIndentConstant          = 2
	moveStatusPlannedConstant     = "planned"
	moveStatusMovedConstant       = "moved"
	moveStatusFailedConstant      = "failed"
	reportFormatTextValueConstant = "text"
	reportFormatYAMLValueConstant = "yaml"
	reportFormatYAMLAliasConstant = "yml"
	missingOutcomeMessageConstant = "no outcome reported"
)

// ReportFormat selects how the run summary is rendered.
type ReportFormat string

// Report format enumerations.
const (
	ReportFormatText ReportFormat = ReportFormat(reportFormatTextValueConstant)
	ReportFormatYAML ReportFormat = ReportFormat(reportFormatYAMLValueConstant)
)

// ParseReportFormat interprets a configured report format. Blank selects text.
func ParseReportFormat(value string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", reportFormatTextValueConstant:
		return ReportFormatText, nil
	case reportFormatYAMLValueConstant, reportFormatYAMLAliasConstant:
		return ReportFormatYAML, nil
	default:
		return "", InvalidInputError{FieldName: reportFormatFieldNameConstant, Message: fmt.Sprintf(unsupportedReportFormatTemplateConstant, value)}
	}
}

// SummaryWriter renders a RunResult.
type SummaryWriter struct {
	format ReportFormat
}

// NewSummaryWriter constructs a SummaryWriter for the format.
func NewSummaryWriter(format ReportFormat) SummaryWriter {
	if format != ReportFormatYAML {
		format = ReportFormatText
	}
	return SummaryWriter{format: format}
}

// Write renders the result to output. The text form lists one line per
// developer in name order; the YAML form adds iterations and moves.
func (summaryWriter SummaryWriter) Write(output io.Writer, result RunResult) error {
	if output == nil {
		return ErrReportOutputNotConfigured
	}
	if summaryWriter.format == ReportFormatYAML {
		return writeYAMLSummary(output, result)
	}
	for _, entry := range result.Ledger {
		if _, writeError := fmt.Fprintf(output, reportLineTemplateConstant, entry.Developer, entry.Points.ExcludingReviewed, entry.Points.Total); writeError != nil {
			return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
		}
	}
	return nil
}

type summaryDocument struct {
	Group            string              `yaml:"group"`
	DryRun           bool                `yaml:"dry_run"`
	CurrentIteration iterationDocument   `yaml:"current_iteration"`
	NextIteration    iterationDocument   `yaml:"next_iteration"`
	IssueCount       int                 `yaml:"issue_count"`
	Moves            []moveDocument      `yaml:"moves"`
	Developers       []developerDocument `yaml:"developers"`
}

type iterationDocument struct {
	ID        int64  `yaml:"id"`
	Title     string `yaml:"title,omitempty"`
	StartDate string `yaml:"start_date,omitempty"`
	DueDate   string `yaml:"due_date,omitempty"`
}

type moveDocument struct {
	ProjectPath         string   `yaml:"project_path"`
	IID                 string   `yaml:"iid"`
	WebURL              string   `yaml:"web_url,omitempty"`
	Weight              uint32   `yaml:"weight"`
	Developer           string   `yaml:"developer"`
	ByExcludingReviewed bool     `yaml:"by_excluding_reviewed"`
	ByTotal             bool     `yaml:"by_total"`
	Status              string   `yaml:"status"`
	Errors              []string `yaml:"errors,omitempty"`
}

type developerDocument struct {
	Developer         string `yaml:"developer"`
	ExcludingReviewed uint32 `yaml:"excluding_reviewed"`
	Total             uint32 `yaml:"total"`
}

func writeYAMLSummary(output io.Writer, result RunResult) error {
	document := summaryDocument{
		Group:            result.Group,
		DryRun:           result.DryRun,
		CurrentIteration: newIterationDocument(result.CurrentIteration),
		NextIteration:    newIterationDocument(result.NextIteration),
		IssueCount:       result.IssueCount,
		Moves:            make([]moveDocument, 0, len(result.Moves)),
		Developers:       make([]developerDocument, 0, len(result.Ledger)),
	}

	for moveIndex, move := range result.Moves {
		moveEntry := moveDocument{
			ProjectPath:         move.ProjectPath,
			IID:                 move.IID,
			WebURL:              move.WebURL,
			Weight:              move.Weight,
			Developer:           move.DecidingAssignee,
			ByExcludingReviewed: move.Eligibility.ByExcludingReviewed,
			ByTotal:             move.Eligibility.ByTotal,
			Status:              moveStatusPlannedConstant,
		}
		if !result.DryRun {
			switch {
			case moveIndex >= len(result.Outcomes):
				moveEntry.Status = moveStatusFailedConstant
				moveEntry.Errors = []string{missingOutcomeMessageConstant}
			case result.Outcomes[moveIndex].Moved:
				moveEntry.Status = moveStatusMovedConstant
			default:
				moveEntry.Status = moveStatusFailedConstant
				moveEntry.Errors = result.Outcomes[moveIndex].Errors
			}
		}
		document.Moves = append(document.Moves, moveEntry)
	}

	for _, entry := range result.Ledger {
		document.Developers = append(document.Developers, developerDocument{
			Developer:         entry.Developer,
			ExcludingReviewed: entry.Points.ExcludingReviewed,
			Total:             entry.Points.Total,
		})
	}

	encoder := yaml.NewEncoder(output)
	encoder.SetIndent(reportIndentConstant)
	if encodingError := encoder.Encode(document); encodingError != nil {
		return fmt.Errorf(reportEncodingErrorTemplateConstant, encodingError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(reportEncodingErrorTemplateConstant, closeError)
	}
	return nil
}

func newIterationDocument(iteration gitlab.Iteration) iterationDocument {
	document := iterationDocument{ID: iteration.ID, Title: iteration.Title}
	if !iteration.StartDate.IsZero() {
		document.StartDate = iteration.StartDate.Format(reportDateLayoutConstant)
	}
	if !iteration.DueDate.IsZero() {
		document.DueDate = iteration.DueDate.Format(reportDateLayoutConstant)
	}
	return document
}

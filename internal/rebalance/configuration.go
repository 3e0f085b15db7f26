package rebalance

import (
	"strings"
	"time"

	"github.com/temirov/iterbot/internal/gitlab"
)

const (
	hostConfigurationKeyConstant                       = "host"
	tokenSourceConfigurationKeyConstant                = "token_source"
	groupConfigurationKeyConstant                      = "group"
	assigneesConfigurationKeyConstant                  = "assignees"
	thresholdExcludingReviewedConfigurationKeyConstant = "thresholds.excluding_reviewed"
	thresholdTotalConfigurationKeyConstant             = "thresholds.total"
	dryRunConfigurationKeyConstant                     = "dry_run"
	reportFormatConfigurationKeyConstant               = "report_format"
	pageSizeConfigurationKeyConstant                   = "page_size"
	retryMaxElapsedConfigurationKeyConstant            = "retry.max_elapsed"
	configurationKeySeparatorConstant                  = "."
	assigneeListSeparatorConstant                      = ","
	defaultPageSizeConstant                            = 100
	defaultRetryMaxElapsedConstant                     = 30 * time.Second
)

// CommandConfiguration captures persisted configuration for the rebalance command.
type CommandConfiguration struct {
	Host         string                 `mapstructure:"host"`
	TokenSource  string                 `mapstructure:"token_source"`
	Group        string                 `mapstructure:"group"`
	Assignees    []string               `mapstructure:"assignees"`
	Thresholds   ThresholdConfiguration `mapstructure:"thresholds"`
	DryRun       bool                   `mapstructure:"dry_run"`
	ReportFormat string                 `mapstructure:"report_format"`
	PageSize     int                    `mapstructure:"page_size"`
	Retry        RetryConfiguration     `mapstructure:"retry"`
}

// ThresholdConfiguration holds the workload thresholds.
type ThresholdConfiguration struct {
	ExcludingReviewed uint32 `mapstructure:"excluding_reviewed"`
	Total             uint32 `mapstructure:"total"`
}

// RetryConfiguration bounds retries of read requests.
type RetryConfiguration struct {
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
}

// DefaultCommandConfiguration returns baseline configuration values for the rebalance command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Host:        "",
		TokenSource: gitlab.DefaultTokenSourceConstant,
		Group:       "",
		Assignees:   nil,
		Thresholds: ThresholdConfiguration{
			ExcludingReviewed: DefaultThresholdExcludingReviewedConstant,
			Total:             DefaultThresholdTotalConstant,
		},
		DryRun:       false,
		ReportFormat: string(ReportFormatText),
		PageSize:     defaultPageSizeConstant,
		Retry:        RetryConfiguration{MaxElapsed: defaultRetryMaxElapsedConstant},
	}
}

// DefaultConfigurationValues exposes the defaults as Viper keys under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	values := map[string]any{
		hostConfigurationKeyConstant:                       defaults.Host,
		tokenSourceConfigurationKeyConstant:                defaults.TokenSource,
		groupConfigurationKeyConstant:                      defaults.Group,
		assigneesConfigurationKeyConstant:                  []string{},
		thresholdExcludingReviewedConfigurationKeyConstant: defaults.Thresholds.ExcludingReviewed,
		thresholdTotalConfigurationKeyConstant:             defaults.Thresholds.Total,
		dryRunConfigurationKeyConstant:                     defaults.DryRun,
		reportFormatConfigurationKeyConstant:               defaults.ReportFormat,
		pageSizeConfigurationKeyConstant:                   defaults.PageSize,
		retryMaxElapsedConfigurationKeyConstant:            defaults.Retry.MaxElapsed,
	}

	trimmedPrefix := strings.Trim(strings.TrimSpace(prefix), configurationKeySeparatorConstant)
	if len(trimmedPrefix) == 0 {
		return values
	}

	prefixedValues := make(map[string]any, len(values))
	for key, value := range values {
		prefixedValues[trimmedPrefix+configurationKeySeparatorConstant+key] = value
	}
	return prefixedValues
}

// Sanitize trims configured values and splits comma separated assignees.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Host = strings.TrimSpace(configuration.Host)
	sanitized.TokenSource = strings.TrimSpace(configuration.TokenSource)
	sanitized.Group = strings.Trim(strings.TrimSpace(configuration.Group), namespacePathSeparatorConstant)
	sanitized.Assignees = sanitizeAssignees(configuration.Assignees)
	sanitized.ReportFormat = strings.TrimSpace(configuration.ReportFormat)
	if sanitized.PageSize < 0 {
		sanitized.PageSize = 0
	}
	if sanitized.Retry.MaxElapsed < 0 {
		sanitized.Retry.MaxElapsed = 0
	}
	return sanitized
}

func sanitizeAssignees(rawAssignees []string) []string {
	sanitizedAssignees := make([]string, 0, len(rawAssignees))
	for _, rawAssignee := range rawAssignees {
		for _, candidate := range strings.Split(rawAssignee, assigneeListSeparatorConstant) {
			trimmedCandidate := strings.TrimSpace(candidate)
			if len(trimmedCandidate) == 0 {
				continue
			}
			sanitizedAssignees = append(sanitizedAssignees, trimmedCandidate)
		}
	}
	if len(sanitizedAssignees) == 0 {
		return nil
	}
	return sanitizedAssignees
}

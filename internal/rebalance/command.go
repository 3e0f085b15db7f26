package rebalance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/iterbot/internal/gitlab"
	"github.com/temirov/iterbot/internal/utils"
)

const (
	rebalanceCommandUseConstant                = "rebalance"
	rebalanceCommandShortDescriptionConstant   = "Move low-priority issues out of an overloaded iteration"
	rebalanceCommandLongDescriptionConstant    = "rebalance accumulates each developer's workload in the current GitLab iteration and moves low-priority issues of overloaded developers to the next iteration in one batch."
	hostFlagNameConstant                       = "host"
	hostFlagDescriptionConstant                = "GitLab base URL, for example https://gitlab.example.com"
	groupFlagNameConstant                      = "group"
	groupFlagDescriptionConstant               = "Full path of the GitLab group whose iterations are rebalanced"
	tokenFlagNameConstant                      = "token"
	tokenFlagDescriptionConstant               = "GitLab access token (overrides --token-source)"
	tokenSourceFlagNameConstant                = "token-source"
	tokenSourceFlagDescriptionConstant         = "Token source (env:NAME or file:/path)"
	assigneesFlagNameConstant                  = "assignees"
	assigneesFlagDescriptionConstant           = "Only account for these assignees (comma separated usernames)"
	thresholdExcludingReviewedFlagNameConstant = "threshold-excluding-reviewed"
	thresholdExcludingReviewedFlagDescription  = "Workload excluding issues under review at which low-priority issues move"
	thresholdTotalFlagNameConstant             = "threshold-total"
	thresholdTotalFlagDescriptionConstant      = "Total workload at which low-priority issues move"
	dryRunFlagNameConstant                     = "dry-run"
	dryRunFlagDescriptionConstant              = "Plan and report without moving issues"
	pageSizeFlagNameConstant                   = "page-size"
	pageSizeFlagDescriptionConstant            = "Number of projects and issues per project to read (1-100)"
	reportFormatFlagNameConstant               = "report-format"
	reportFormatFlagDescriptionConstant        = "Summary format: text or yaml"
	configurationFileLogMessageConstant        = "Rebalance configuration resolved"
	logFieldConfigurationFileConstant          = "config_file"
	logFieldEnvironmentPrefixConstant          = "environment_prefix"
	logFieldAssigneeCountConstant              = "assignee_count"
	logFieldThresholdExcludingReviewedConstant = "threshold_excluding_reviewed"
	logFieldThresholdTotalConstant             = "threshold_total"
	defaultHTTPTimeoutConstant                 = 60 * time.Second
	defaultRetryInitialIntervalConstant        = 500 * time.Millisecond
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current rebalance configuration.
type ConfigurationProvider func() CommandConfiguration

// RunExecutor performs a rebalance run.
type RunExecutor interface {
	Execute(executionContext context.Context, runOptions RunOptions) (RunResult, error)
}

// ServiceResolver creates run executors for the command.
type ServiceResolver interface {
	Resolve(logger *zap.Logger, clientConfiguration gitlab.ClientConfiguration, output io.Writer) (RunExecutor, error)
}

// DefaultServiceResolver builds services backed by the GitLab client.
type DefaultServiceResolver struct {
	HTTPClient gitlab.HTTPClient
}

// Resolve creates a Service whose iteration source, issue source and mutation sink share one client.
func (resolver DefaultServiceResolver) Resolve(logger *zap.Logger, clientConfiguration gitlab.ClientConfiguration, output io.Writer) (RunExecutor, error) {
	httpClient := resolver.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeoutConstant}
	}

	client, clientError := gitlab.NewClient(logger, httpClient, clientConfiguration)
	if clientError != nil {
		return nil, fmt.Errorf(clientCreationErrorTemplateConstant, clientError)
	}

	return NewService(ServiceDependencies{
		Logger:          logger,
		IterationSource: client,
		IssueSource:     client,
		MutationSink:    client,
		Output:          output,
	})
}

// CommandBuilder assembles the rebalance command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ServiceResolver       ServiceResolver
	HTTPClient            gitlab.HTTPClient
	EnvironmentLookup     gitlab.EnvironmentLookup
	FileReader            gitlab.FileReader
}

type commandSettings struct {
	runOptions          RunOptions
	clientConfiguration gitlab.ClientConfiguration
}

// Build constructs the rebalance command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	rebalanceCommand := &cobra.Command{
		Use:   rebalanceCommandUseConstant,
		Short: rebalanceCommandShortDescriptionConstant,
		Long:  rebalanceCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	rebalanceCommand.Flags().String(hostFlagNameConstant, "", hostFlagDescriptionConstant)
	rebalanceCommand.Flags().String(groupFlagNameConstant, "", groupFlagDescriptionConstant)
	rebalanceCommand.Flags().String(tokenFlagNameConstant, "", tokenFlagDescriptionConstant)
	rebalanceCommand.Flags().String(tokenSourceFlagNameConstant, "", tokenSourceFlagDescriptionConstant)
	rebalanceCommand.Flags().StringSlice(assigneesFlagNameConstant, nil, assigneesFlagDescriptionConstant)
	rebalanceCommand.Flags().Uint32(thresholdExcludingReviewedFlagNameConstant, DefaultThresholdExcludingReviewedConstant, thresholdExcludingReviewedFlagDescription)
	rebalanceCommand.Flags().Uint32(thresholdTotalFlagNameConstant, DefaultThresholdTotalConstant, thresholdTotalFlagDescriptionConstant)
	rebalanceCommand.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)
	rebalanceCommand.Flags().Int(pageSizeFlagNameConstant, defaultPageSizeConstant, pageSizeFlagDescriptionConstant)
	rebalanceCommand.Flags().String(reportFormatFlagNameConstant, "", reportFormatFlagDescriptionConstant)

	return rebalanceCommand, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	settings, settingsError := builder.parseSettings(command)
	if settingsError != nil {
		return settingsError
	}

	logger := builder.resolveLogger()
	commandMetadata, _ := utils.CommandMetadataFromContext(command.Context())
	logger.Debug(
		configurationFileLogMessageConstant,
		zap.String(logFieldConfigurationFileConstant, commandMetadata.ConfigurationFilePath),
		zap.String(logFieldEnvironmentPrefixConstant, commandMetadata.EnvironmentPrefix),
		zap.String(logFieldGroupConstant, settings.runOptions.Group),
		zap.Int(logFieldAssigneeCountConstant, len(settings.runOptions.Options.AssigneeAllowlist)),
		zap.Uint32(logFieldThresholdExcludingReviewedConstant, settings.runOptions.Options.ThresholdExcludingReviewed),
		zap.Uint32(logFieldThresholdTotalConstant, settings.runOptions.Options.ThresholdTotal),
		zap.Bool(logFieldDryRunConstant, settings.runOptions.DryRun),
	)

	executor, resolveError := builder.resolveService(logger, settings.clientConfiguration, command.OutOrStdout())
	if resolveError != nil {
		return resolveError
	}

	if _, executionError := executor.Execute(command.Context(), settings.runOptions); executionError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, executionError)
	}

	return nil
}

func (builder *CommandBuilder) parseSettings(command *cobra.Command) (commandSettings, error) {
	configuration := builder.resolveConfiguration()
	flags := command.Flags()

	hostFlagValue, hostFlagError := flags.GetString(hostFlagNameConstant)
	if hostFlagError != nil {
		return commandSettings{}, hostFlagError
	}
	hostValue := selectStringValue(hostFlagValue, configuration.Host)
	if len(hostValue) == 0 {
		return commandSettings{}, InvalidInputError{FieldName: hostFieldNameConstant, Message: requiredValueMessageConstant}
	}

	groupFlagValue, groupFlagError := flags.GetString(groupFlagNameConstant)
	if groupFlagError != nil {
		return commandSettings{}, groupFlagError
	}
	groupValue := strings.Trim(selectStringValue(groupFlagValue, configuration.Group), namespacePathSeparatorConstant)
	if len(groupValue) == 0 {
		return commandSettings{}, InvalidInputError{FieldName: groupFieldNameConstant, Message: requiredValueMessageConstant}
	}

	tokenValue, tokenError := builder.resolveToken(command, configuration)
	if tokenError != nil {
		return commandSettings{}, tokenError
	}

	assigneeValues := configuration.Assignees
	if flags.Changed(assigneesFlagNameConstant) {
		flagAssignees, assigneesFlagError := flags.GetStringSlice(assigneesFlagNameConstant)
		if assigneesFlagError != nil {
			return commandSettings{}, assigneesFlagError
		}
		assigneeValues = sanitizeAssignees(flagAssignees)
	}

	thresholdExcludingReviewed := configuration.Thresholds.ExcludingReviewed
	if flags.Changed(thresholdExcludingReviewedFlagNameConstant) {
		flagThreshold, thresholdFlagError := flags.GetUint32(thresholdExcludingReviewedFlagNameConstant)
		if thresholdFlagError != nil {
			return commandSettings{}, thresholdFlagError
		}
		thresholdExcludingReviewed = flagThreshold
	}

	thresholdTotal := configuration.Thresholds.Total
	if flags.Changed(thresholdTotalFlagNameConstant) {
		flagThreshold, thresholdFlagError := flags.GetUint32(thresholdTotalFlagNameConstant)
		if thresholdFlagError != nil {
			return commandSettings{}, thresholdFlagError
		}
		thresholdTotal = flagThreshold
	}

	dryRunValue := configuration.DryRun
	if flags.Changed(dryRunFlagNameConstant) {
		flagDryRunValue, dryRunFlagError := flags.GetBool(dryRunFlagNameConstant)
		if dryRunFlagError != nil {
			return commandSettings{}, dryRunFlagError
		}
		dryRunValue = flagDryRunValue
	}

	pageSizeValue := configuration.PageSize
	if flags.Changed(pageSizeFlagNameConstant) {
		flagPageSize, pageSizeFlagError := flags.GetInt(pageSizeFlagNameConstant)
		if pageSizeFlagError != nil {
			return commandSettings{}, pageSizeFlagError
		}
		pageSizeValue = flagPageSize
	}

	reportFormatFlagValue, reportFormatFlagError := flags.GetString(reportFormatFlagNameConstant)
	if reportFormatFlagError != nil {
		return commandSettings{}, reportFormatFlagError
	}
	reportFormat, reportFormatError := ParseReportFormat(selectStringValue(reportFormatFlagValue, configuration.ReportFormat))
	if reportFormatError != nil {
		return commandSettings{}, fmt.Errorf(reportFormatParseErrorTemplateConstant, reportFormatError)
	}

	options := Options{
		AssigneeAllowlist:          NewAssigneeAllowlist(assigneeValues),
		ThresholdExcludingReviewed: thresholdExcludingReviewed,
		ThresholdTotal:             thresholdTotal,
	}
	if validationError := options.Validate(); validationError != nil {
		return commandSettings{}, validationError
	}

	return commandSettings{
		runOptions: RunOptions{
			Host:         hostValue,
			Group:        groupValue,
			Options:      options,
			DryRun:       dryRunValue,
			ReportFormat: reportFormat,
		},
		clientConfiguration: gitlab.ClientConfiguration{
			BaseURL:              hostValue,
			Token:                tokenValue,
			PageSize:             pageSizeValue,
			RetryMaxElapsed:      configuration.Retry.MaxElapsed,
			RetryInitialInterval: defaultRetryInitialIntervalConstant,
		},
	}, nil
}

func (builder *CommandBuilder) resolveToken(command *cobra.Command, configuration CommandConfiguration) (string, error) {
	tokenFlagValue, tokenFlagError := command.Flags().GetString(tokenFlagNameConstant)
	if tokenFlagError != nil {
		return "", tokenFlagError
	}
	if trimmedToken := strings.TrimSpace(tokenFlagValue); len(trimmedToken) > 0 {
		return trimmedToken, nil
	}

	tokenSourceFlagValue, tokenSourceFlagError := command.Flags().GetString(tokenSourceFlagNameConstant)
	if tokenSourceFlagError != nil {
		return "", tokenSourceFlagError
	}
	tokenSourceValue := selectStringValue(tokenSourceFlagValue, configuration.TokenSource)
	if len(tokenSourceValue) == 0 {
		tokenSourceValue = gitlab.DefaultTokenSourceConstant
	}

	tokenSource, parseError := gitlab.ParseTokenSource(tokenSourceValue)
	if parseError != nil {
		return "", fmt.Errorf(tokenSourceParseErrorTemplateConstant, parseError)
	}

	tokenValue, resolveError := tokenSource.Resolve(builder.EnvironmentLookup, builder.FileReader)
	if resolveError != nil {
		return "", fmt.Errorf(tokenResolutionErrorTemplateConstant, resolveError)
	}

	return tokenValue, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	return configuration.Sanitize()
}

func (builder *CommandBuilder) resolveService(logger *zap.Logger, clientConfiguration gitlab.ClientConfiguration, output io.Writer) (RunExecutor, error) {
	if builder.ServiceResolver != nil {
		return builder.ServiceResolver.Resolve(logger, clientConfiguration, output)
	}

	defaultResolver := DefaultServiceResolver{HTTPClient: builder.HTTPClient}
	return defaultResolver.Resolve(logger, clientConfiguration, output)
}

func selectStringValue(flagValue string, configurationValue string) string {
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) > 0 {
		return trimmedFlagValue
	}

	return strings.TrimSpace(configurationValue)
}

package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	baseURLFieldNameConstant        = "base_url"
	tokenFieldNameConstant          = "token"
	defaultPageSizeConstant         = 100
	maximumPageSizeConstant         = 100
	errorBodyPreviewLimitConstant   = 4096
	authorizationHeaderConstant     = "Authorization"
	bearerTokenTemplateConstant     = "Bearer %s"
	acceptHeaderConstant            = "Accept"
	contentTypeHeaderConstant       = "Content-Type"
	jsonMediaTypeConstant           = "application/json"
	graphQLEndpointTemplateConstant = "%s/api/graphql"
	requestCreationErrorTemplate    = "unable to create request: %w"
	payloadEncodingErrorTemplate    = "unable to encode request payload: %w"
	retryingRequestMessageConstant  = "Retrying GitLab request"
	logFieldOperationConstant       = "operation"
	logFieldRetryDelayConstant      = "retry_delay"
	logFieldEndpointConstant        = "endpoint"
	logFieldStatusCodeConstant      = "status_code"
	requestCompletedMessageConstant = "GitLab request completed"
	graphQLGroupMissingMessage      = "group not found or not visible to the token"
	graphQLEmptyDataMessageConstant = "response carried no data"
)

// HTTPClient is the subset of *http.Client used by Client.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// ClientConfiguration describes how Client reaches a GitLab instance.
type ClientConfiguration struct {
	BaseURL              string
	Token                string
	PageSize             int
	RetryMaxElapsed      time.Duration
	RetryInitialInterval time.Duration
}

// Client issues GitLab REST and GraphQL requests.
type Client struct {
	baseURL              string
	token                string
	pageSize             int
	retryMaxElapsed      time.Duration
	retryInitialInterval time.Duration
	httpClient           HTTPClient
	logger               *zap.Logger
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLErrorEntry struct {
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

// NewClient validates the configuration and constructs a Client.
func NewClient(logger *zap.Logger, httpClient HTTPClient, configuration ClientConfiguration) (*Client, error) {
	if httpClient == nil {
		return nil, ErrHTTPClientNotConfigured
	}

	baseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(baseURL) == 0 {
		return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	token := strings.TrimSpace(configuration.Token)
	if len(token) == 0 {
		return nil, InvalidInputError{FieldName: tokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	pageSize := configuration.PageSize
	if pageSize <= 0 || pageSize > maximumPageSizeConstant {
		pageSize = defaultPageSizeConstant
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:              baseURL,
		token:                token,
		pageSize:             pageSize,
		retryMaxElapsed:      configuration.RetryMaxElapsed,
		retryInitialInterval: configuration.RetryInitialInterval,
		httpClient:           httpClient,
		logger:               logger,
	}, nil
}

func (client *Client) graphQLEndpoint() string {
	return fmt.Sprintf(graphQLEndpointTemplateConstant, client.baseURL)
}

// execute performs one HTTP round trip and decodes a 2xx JSON body into target.
func (client *Client) execute(executionContext context.Context, operation OperationName, method string, endpoint string, payload any, target any) error {
	var requestBody io.Reader
	if payload != nil {
		encodedPayload, encodingError := json.Marshal(payload)
		if encodingError != nil {
			return OperationError{Operation: operation, Cause: fmt.Errorf(payloadEncodingErrorTemplate, encodingError)}
		}
		requestBody = bytes.NewReader(encodedPayload)
	}

	request, requestError := http.NewRequestWithContext(executionContext, method, endpoint, requestBody)
	if requestError != nil {
		return OperationError{Operation: operation, Cause: fmt.Errorf(requestCreationErrorTemplate, requestError)}
	}
	request.Header.Set(authorizationHeaderConstant, fmt.Sprintf(bearerTokenTemplateConstant, client.token))
	request.Header.Set(acceptHeaderConstant, jsonMediaTypeConstant)
	if payload != nil {
		request.Header.Set(contentTypeHeaderConstant, jsonMediaTypeConstant)
	}

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return OperationError{Operation: operation, Cause: responseError}
	}
	defer response.Body.Close()

	client.logger.Debug(
		requestCompletedMessageConstant,
		zap.String(logFieldOperationConstant, string(operation)),
		zap.String(logFieldEndpointConstant, endpoint),
		zap.Int(logFieldStatusCodeConstant, response.StatusCode),
	)

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		bodyPreview, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyPreviewLimitConstant))
		return UnexpectedStatusError{Operation: operation, StatusCode: response.StatusCode, Body: strings.TrimSpace(string(bodyPreview))}
	}

	if decodingError := json.NewDecoder(response.Body).Decode(target); decodingError != nil {
		return ResponseDecodingError{Operation: operation, Cause: decodingError}
	}

	return nil
}

// executeIdempotent wraps execute with exponential backoff for transient failures.
func (client *Client) executeIdempotent(executionContext context.Context, operation OperationName, method string, endpoint string, payload any, target any) error {
	if client.retryMaxElapsed <= 0 {
		return client.execute(executionContext, operation, method, endpoint, payload, target)
	}

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = client.retryMaxElapsed
	if client.retryInitialInterval > 0 {
		retryPolicy.InitialInterval = client.retryInitialInterval
	}

	return backoff.RetryNotify(
		func() error {
			executionError := client.execute(executionContext, operation, method, endpoint, payload, target)
			if executionError == nil {
				return nil
			}
			if isTransientFailure(executionError) {
				return executionError
			}
			return backoff.Permanent(executionError)
		},
		backoff.WithContext(retryPolicy, executionContext),
		func(retryError error, retryDelay time.Duration) {
			client.logger.Debug(
				retryingRequestMessageConstant,
				zap.String(logFieldOperationConstant, string(operation)),
				zap.Duration(logFieldRetryDelayConstant, retryDelay),
				zap.Error(retryError),
			)
		},
	)
}

func isTransientFailure(executionError error) bool {
	if errors.Is(executionError, context.Canceled) || errors.Is(executionError, context.DeadlineExceeded) {
		return false
	}

	var statusError UnexpectedStatusError
	if errors.As(executionError, &statusError) {
		return statusError.StatusCode >= http.StatusInternalServerError || statusError.StatusCode == http.StatusTooManyRequests
	}

	var operationError OperationError
	return errors.As(executionError, &operationError)
}

func graphQLMessages(entries []graphQLErrorEntry) []string {
	messages := make([]string, 0, len(entries))
	for _, entry := range entries {
		messages = append(messages, entry.Message)
	}
	return messages
}

package gitlab

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	tokenSourceSeparatorConstant        = ":"
	environmentTokenSourceValueConstant = "env"
	fileTokenSourceValueConstant        = "file"
	homeDirectoryShortcutConstant       = "~"
	homeDirectoryPrefixConstant         = "~/"
	// DefaultTokenSourceConstant names the environment variable read when no token source is configured.
	DefaultTokenSourceConstant              = "env:GITLAB_TOKEN"
	tokenSourceMissingMessageConstant       = "token source must be provided"
	environmentNameMissingMessageConstant   = "environment variable name must be provided"
	filePathMissingMessageConstant          = "token file path must be provided"
	environmentTokenMissingTemplateConstant = "environment variable %s is not set"
	fileTokenReadErrorTemplateConstant      = "unable to read token file %s: %w"
	fileTokenEmptyTemplateConstant          = "token file %s is empty"
	unsupportedTokenSourceTemplateConstant  = "unsupported token source type %q"
)

// TokenSourceType enumerates where a GitLab access token is read from.
type TokenSourceType string

// Token source type enumerations.
const (
	TokenSourceTypeEnvironment TokenSourceType = TokenSourceType(environmentTokenSourceValueConstant)
	TokenSourceTypeFile        TokenSourceType = TokenSourceType(fileTokenSourceValueConstant)
)

// TokenSource locates an access token.
type TokenSource struct {
	Type      TokenSourceType
	Reference string
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// ParseTokenSource interprets "env:NAME", "file:/path" or a bare variable name.
func ParseTokenSource(sourceValue string) (TokenSource, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return TokenSource{}, errors.New(tokenSourceMissingMessageConstant)
	}

	sourceType, reference, hasSeparator := strings.Cut(trimmedValue, tokenSourceSeparatorConstant)
	if !hasSeparator {
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	reference = strings.TrimSpace(reference)
	switch TokenSourceType(strings.ToLower(strings.TrimSpace(sourceType))) {
	case TokenSourceTypeEnvironment:
		if len(reference) == 0 {
			return TokenSource{}, errors.New(environmentNameMissingMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: reference}, nil
	case TokenSourceTypeFile:
		if len(reference) == 0 {
			return TokenSource{}, errors.New(filePathMissingMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeFile, Reference: reference}, nil
	default:
		return TokenSource{}, fmt.Errorf(unsupportedTokenSourceTemplateConstant, sourceType)
	}
}

// Resolve reads the token. Nil collaborators fall back to the process
// environment and the filesystem.
func (source TokenSource) Resolve(environmentLookup EnvironmentLookup, fileReader FileReader) (string, error) {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}

	switch source.Type {
	case TokenSourceTypeEnvironment:
		value, found := environmentLookup(source.Reference)
		trimmedValue := strings.TrimSpace(value)
		if !found || len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	case TokenSourceTypeFile:
		tokenPath := expandHomeDirectory(source.Reference)
		contents, readError := fileReader(tokenPath)
		if readError != nil {
			return "", fmt.Errorf(fileTokenReadErrorTemplateConstant, tokenPath, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(fileTokenEmptyTemplateConstant, tokenPath)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedTokenSourceTemplateConstant, source.Type)
	}
}

func expandHomeDirectory(candidatePath string) string {
	if candidatePath != homeDirectoryShortcutConstant && !strings.HasPrefix(candidatePath, homeDirectoryPrefixConstant) {
		return candidatePath
	}
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil || len(homeDirectory) == 0 {
		return candidatePath
	}
	return filepath.Join(homeDirectory, strings.TrimPrefix(candidatePath, homeDirectoryShortcutConstant))
}

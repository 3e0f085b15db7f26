package utils

import "context"

type commandMetadataContextKey struct{}

// CommandMetadata describes where the running command took its configuration from.
type CommandMetadata struct {
	ConfigurationFilePath string
	EnvironmentPrefix     string
}

// WithCommandMetadata attaches metadata to parentContext.
func WithCommandMetadata(parentContext context.Context, metadata CommandMetadata) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, commandMetadataContextKey{}, metadata)
}

// CommandMetadataFromContext returns the metadata attached by WithCommandMetadata.
func CommandMetadataFromContext(executionContext context.Context) (CommandMetadata, bool) {
	if executionContext == nil {
		return CommandMetadata{}, false
	}
	metadata, available := executionContext.Value(commandMetadataContextKey{}).(CommandMetadata)
	return metadata, available
}

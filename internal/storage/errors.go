package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Storage errors. Purge failures are deliberately absent: cache
// invalidation reports failure through its boolean return, never an error.
var (
	// ErrSourceFile indicates a local source file could not be read.
	ErrSourceFile = errors.New("source file unreadable")

	// ErrBackend indicates a network, credential, or protocol failure
	// talking to a remote storage provider.
	ErrBackend = errors.New("storage backend error")

	// ErrEmptyKey indicates a key sanitized down to nothing.
	ErrEmptyKey = errors.New("storage key is empty after sanitization")
)

// ConfigError reports missing required configuration for a provider.
// The Factory returns it before attempting any network call, so a
// misconfigured provider fails fast with the exact fields that are absent.
type ConfigError struct {
	// Provider is the backend that could not be configured.
	Provider Provider

	// Missing lists the absent configuration fields.
	Missing []string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %s: missing required configuration: %s",
		e.Provider, strings.Join(e.Missing, ", "))
}

// NewConfigError creates a ConfigError for the given provider and fields.
func NewConfigError(provider Provider, missing ...string) *ConfigError {
	return &ConfigError{Provider: provider, Missing: missing}
}

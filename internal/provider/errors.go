// Package provider holds what the LLM and TTS client layers share: the
// error kinds raised while building or calling a provider, and the
// per-kind client registry.
package provider

import (
	"fmt"
	"strings"
)

// ConfigurationError reports missing or invalid credentials. It is raised
// when a client is constructed, never on first use.
type ConfigurationError struct {
	Provider string
	Field    string
	Hint     string // e.g. the environment variable that supplies Field
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s: missing or invalid %s", e.Provider, e.Field)
	if e.Hint != "" {
		msg += " (set " + e.Hint + ")"
	}
	return msg
}

// UnsupportedProviderError reports an unknown provider kind.
type UnsupportedProviderError struct {
	Kind  string
	Known []string
}

func (e *UnsupportedProviderError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unsupported provider %q", e.Kind)
	}
	return fmt.Sprintf("unsupported provider %q: choose %s", e.Kind, strings.Join(e.Known, ", "))
}

// NotImplementedError is returned by stub providers that have no backend.
type NotImplementedError struct {
	Provider  string
	Operation string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: %s is not implemented", e.Provider, e.Operation)
}

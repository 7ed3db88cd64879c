// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"errors"
	"fmt"
)

// ErrNoProviders is returned when routing is attempted with no providers configured.
var ErrNoProviders = &ConfigurationError{Reason: "no providers configured"}

// ConfigurationError reports a routing table that cannot resolve a call:
// no providers at all, or an explicitly named provider that does not exist.
// It is the only error that leaves the pipeline core.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// Is makes errors.Is(err, &ConfigurationError{}) match any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}

// BackendUnavailableError wraps a network, timeout, or upstream failure of
// a single provider call.
type BackendUnavailableError struct {
	Provider string
	Op       string
	Err      error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("provider %s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &BackendUnavailableError{}) match any instance.
func (e *BackendUnavailableError) Is(target error) bool {
	_, ok := target.(*BackendUnavailableError)
	return ok
}

// MalformedResponseError marks model output that could not be decoded into
// the expected structure.
type MalformedResponseError struct {
	Content string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	snippet := e.Content
	if len(snippet) > 80 {
		snippet = snippet[:77] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed model response %q: %v", snippet, e.Err)
	}
	return fmt.Sprintf("malformed model response %q", snippet)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &MalformedResponseError{}) match any instance.
func (e *MalformedResponseError) Is(target error) bool {
	_, ok := target.(*MalformedResponseError)
	return ok
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	return errors.Is(err, &ConfigurationError{})
}

func unavailable(provider, op string, err error) error {
	var bu *BackendUnavailableError
	if errors.As(err, &bu) {
		return err
	}
	return &BackendUnavailableError{Provider: provider, Op: op, Err: err}
}

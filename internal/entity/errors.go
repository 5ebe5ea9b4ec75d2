package entity

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// ConfigurationError rejects a schedule or run before anything is created.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// TransportError is a failure fetching a single page.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Terminal reports whether the page is gone for good, so later pages are
// not worth requesting.
func (e *TransportError) Terminal() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// EngineUnavailableError means an engine cannot start in this deployment.
type EngineUnavailableError struct {
	Engine EngineKind
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("%s engine unavailable: %v", e.Engine, e.Err)
}

func (e *EngineUnavailableError) Unwrap() error { return e.Err }

// ParseError means no date layout matched the raw input.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable date %q", e.Raw)
}

// PersistenceError wraps a store failure that aborts a run.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

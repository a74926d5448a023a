package router

import (
	"errors"
	"fmt"
)

// Sentinel errors for routing conditions.
var (
	// ErrRouteNotFound indicates no registered route matches a hash.
	ErrRouteNotFound = errors.New("no route matches hash")

	// ErrNoPageHandler indicates a route has no page-bearing handler to load.
	ErrNoPageHandler = errors.New("route has no page handler")

	// ErrInvalidHandler indicates a handler was built without its function or page.
	ErrInvalidHandler = errors.New("invalid route handler")

	// ErrAsyncMisuse indicates a route flagged as async was given something
	// other than an async loader.
	ErrAsyncMisuse = errors.New("async route component must be an async loader")

	// ErrUnsupportedTrigger indicates a provider binding names a trigger kind
	// the router does not implement.
	ErrUnsupportedTrigger = errors.New("unsupported provider trigger")

	// ErrNonComparablePage indicates a page value cannot be tracked by identity.
	ErrNonComparablePage = errors.New("page must be a comparable value")

	// ErrInvalidPattern indicates a route pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid route pattern")

	// ErrRegistrationConflict is logged, never returned, when a second page,
	// provider or widget set is registered for the same route.
	ErrRegistrationConflict = errors.New("registration conflict")
)

// ConfigError represents a programmer error in route configuration. These
// are fatal: the application should abort startup rather than route around
// them.
type ConfigError struct {
	Op    string // Registration call that failed (e.g., "route", "add")
	Route string // Route pattern involved, if any
	Err   error  // Underlying error
}

func (e *ConfigError) Error() string {
	if e.Route != "" {
		return fmt.Sprintf("hashnav: %s %q: %v", e.Op, e.Route, e.Err)
	}
	return fmt.Sprintf("hashnav: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error.
func NewConfigError(op, route string, err error) *ConfigError {
	return &ConfigError{Op: op, Route: route, Err: err}
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// PageError describes a failure to provide data for a page. It is handed to
// the error page ("!") when one is registered.
type PageError struct {
	Page  Page
	Route string
	Hash  string
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("hashnav: providing %q (%s): %v", e.Route, e.Hash, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// panicError converts a recovered panic value into an error.
func panicError(op string, v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("%s panicked: %w", op, err)
	}
	return fmt.Errorf("%s panicked: %v", op, v)
}

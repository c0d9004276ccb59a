package router

import (
	"fmt"
)

// InvalidRouteKeyError occurs for a top-level routes key that is neither a
// path, "regex" nor an HTTP status code.
type InvalidRouteKeyError struct {
	Key string
}

// Error implements the error interface.
func (e InvalidRouteKeyError) Error() string {
	return fmt.Sprintf("invalid routes key %q: expected a path, \"regex\" or a status code", e.Key)
}

// InvalidRouteError occurs when a route entry cannot be decoded or compiled.
type InvalidRouteError struct {
	Key   string
	Cause error
}

// Error implements the error interface.
func (e InvalidRouteError) Error() string {
	return fmt.Sprintf("invalid route %q: %s", e.Key, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidRouteError) Unwrap() error {
	return e.Cause
}

// UnknownActionError occurs when a route names a controller or action that
// is not registered.
type UnknownActionError struct {
	Pattern    string
	Controller string
	Action     string
}

// Error implements the error interface.
func (e UnknownActionError) Error() string {
	return fmt.Sprintf("route %q: unknown action %s.%s", e.Pattern, e.Controller, e.Action)
}

// PanicError carries a value recovered from a panicking action.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("action panicked: %v", e.Value)
}

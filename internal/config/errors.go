package config

import (
	"errors"
	"fmt"
)

// ErrUnknownEnvironment is returned for environment names other than dev, stage and prod.
var ErrUnknownEnvironment = errors.New("environment must be one of dev, stage, prod")

// InvalidYamlError occurs if a config document contains invalid YAML.
type InvalidYamlError struct {
	Cause error
}

// Error implements the error interface.
func (e InvalidYamlError) Error() string {
	return fmt.Sprintf("invalid yaml: %s", e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidYamlError) Unwrap() error {
	return e.Cause
}

// NotAMappingError occurs when a config document's root is not a mapping.
type NotAMappingError struct {
	Line int
}

// Error implements the error interface.
func (e NotAMappingError) Error() string {
	return fmt.Sprintf("config document root must be a mapping (line %d)", e.Line)
}

// NonScalarKeyError occurs when a mapping key is itself a list or mapping.
type NonScalarKeyError struct {
	Line int
}

// Error implements the error interface.
func (e NonScalarKeyError) Error() string {
	return fmt.Sprintf("config keys must be scalars (line %d)", e.Line)
}

// FileError attaches the offending path to a parse failure.
type FileError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e FileError) Unwrap() error {
	return e.Cause
}

// DecodeError occurs when the merged tree cannot be decoded into typed settings.
type DecodeError struct {
	Cause error
}

// Error implements the error interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("failed to decode config: %s", e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e DecodeError) Unwrap() error {
	return e.Cause
}

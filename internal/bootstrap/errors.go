package bootstrap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingField is matched by a ConfigurationError with an empty field.
	ErrMissingField = errors.New("required field is empty")
	// ErrPlaceholderValue is matched by a ConfigurationError with a template value.
	ErrPlaceholderValue = errors.New("field holds a placeholder value")
	// ErrAlreadyInitialized is returned by a second successful Initialize.
	ErrAlreadyInitialized = errors.New("bootstrap: already initialized")
	// ErrNotInitialized is returned when handles are requested too early.
	ErrNotInitialized = errors.New("bootstrap: not initialized")
	// ErrShutdown is returned once the loader has torn its handles down.
	ErrShutdown = errors.New("bootstrap: shut down")
)

// FieldError describes one invalid record field.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

// ConfigurationError reports record fields that are missing or unusable.
// It is produced before any SDK call.
type ConfigurationError struct {
	Fields []FieldError
}

func (e *ConfigurationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "invalid backend configuration: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-field causes to errors.Is.
func (e *ConfigurationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		errs = append(errs, f.Err)
	}
	return errs
}

// FieldNames lists the offending fields.
func (e *ConfigurationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

// Initialization stages.
const (
	StageApp       = "app"
	StageTelemetry = "telemetry"
)

// InitializationError reports that the SDK rejected the configuration.
type InitializationError struct {
	Stage string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Stage, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

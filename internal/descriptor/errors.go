package descriptor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrConfig is the sentinel behind every configuration error.
var ErrConfig = errors.New("configuration error")

// ConfigError is a setup defect found before any trial runs.
type ConfigError struct {
	EntryPoint string
	Component  string
	Err        error
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s: %v", ErrConfig, e.EntryPoint, e.Component, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError wraps err as a configuration error.
func NewConfigError(entryPoint, component string, err error) *ConfigError {
	return &ConfigError{EntryPoint: entryPoint, Component: component, Err: err}
}

// configErrorf builds a configuration error from a message.
func configErrorf(entryPoint, component, format string, args ...any) *ConfigError {
	return NewConfigError(entryPoint, component, errors.Errorf(format, args...))
}

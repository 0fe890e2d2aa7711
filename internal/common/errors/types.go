// Package errors defines the structured error taxonomy shared by all cache
// drivers and the manager facade.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a cache error.
type ErrorType string

const (
	// ErrTypeConfig represents configuration errors (missing storage directory,
	// missing connection target, malformed option values).
	ErrTypeConfig ErrorType = "config"
	// ErrTypeDriverNotFound is returned when an unregistered driver name is requested.
	ErrTypeDriverNotFound ErrorType = "driver_not_found"
	// ErrTypeNotInitialized is returned by facade operations invoked before a
	// driver has been activated.
	ErrTypeNotInitialized ErrorType = "not_initialized"
	// ErrTypeTypeMismatch is returned by increment/decrement when the stored
	// value is not numeric.
	ErrTypeTypeMismatch ErrorType = "type_mismatch"
	// ErrTypeUnsupported is returned for operations a driver cannot express,
	// such as namespace removal on a flat keyspace.
	ErrTypeUnsupported ErrorType = "unsupported"
	// ErrTypeConnection represents backing store connection failures.
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeInternal represents unexpected internal failures.
	ErrTypeInternal ErrorType = "internal"
)

// CacheError is a structured error carrying a type, an optional cause and
// free-form context.
type CacheError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause.
func (e *CacheError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a context value to the error.
func (e *CacheError) WithContext(key string, value interface{}) *CacheError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ConfigError creates a configuration error.
func ConfigError(msg string) *CacheError {
	return &CacheError{Type: ErrTypeConfig, Message: msg}
}

// DriverNotFoundError creates an error for an unregistered driver name.
func DriverNotFoundError(name string) *CacheError {
	return &CacheError{
		Type:    ErrTypeDriverNotFound,
		Message: fmt.Sprintf("driver %q is not registered", name),
	}
}

// NotInitializedError creates an error for facade use before a driver is active.
func NotInitializedError() *CacheError {
	return &CacheError{
		Type:    ErrTypeNotInitialized,
		Message: "no cache driver is active; call Use first",
	}
}

// TypeMismatchError creates an error for arithmetic on a non-numeric value.
func TypeMismatchError(key string, stored interface{}) *CacheError {
	return &CacheError{
		Type:    ErrTypeTypeMismatch,
		Message: fmt.Sprintf("value at %q is %T, not numeric", key, stored),
	}
}

// UnsupportedError creates an error for an operation a driver cannot perform.
func UnsupportedError(driver, operation string) *CacheError {
	return &CacheError{
		Type:    ErrTypeUnsupported,
		Message: fmt.Sprintf("driver %s does not support %s", driver, operation),
	}
}

// ConnectionError creates a connection error wrapping its cause.
func ConnectionError(msg string, cause error) *CacheError {
	return &CacheError{Type: ErrTypeConnection, Message: msg, Cause: cause}
}

// InternalError creates an internal error wrapping its cause.
func InternalError(msg string, cause error) *CacheError {
	return &CacheError{Type: ErrTypeInternal, Message: msg, Cause: cause}
}

// IsType reports whether err (or anything it wraps) is a CacheError of the
// given type.
func IsType(err error, t ErrorType) bool {
	var ce *CacheError
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}

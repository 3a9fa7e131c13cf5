// Package errors provides structured error handling for pulsenet operations.
// It defines error codes, error types, and provides utilities for creating
// and handling errors with context and structured information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeCanceled      ErrorCode = "CANCELED"

	// Probe outcome errors.
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeConnectionRefused ErrorCode = "CONNECTION_REFUSED"
	CodeUnreachable       ErrorCode = "UNREACHABLE"
	CodeTargetInvalid     ErrorCode = "TARGET_INVALID"

	// Address source errors.
	CodeSourceEmpty  ErrorCode = "SOURCE_EMPTY"
	CodeSourceParse  ErrorCode = "SOURCE_PARSE"
	CodeFileNotFound ErrorCode = "FILE_NOT_FOUND"

	// Output sink errors.
	CodeSinkOpen  ErrorCode = "SINK_OPEN"
	CodeSinkWrite ErrorCode = "SINK_WRITE"

	// Throttling errors.
	CodeRateLimited ErrorCode = "RATE_LIMITED"
)

// ProbeError represents an error that occurred while probing an address.
type ProbeError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *ProbeError) WithContext(key string, value interface{}) *ProbeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewProbeError creates a new probe error with the specified code and message.
func NewProbeError(code ErrorCode, message string) *ProbeError {
	return &ProbeError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewProbeErrorWithTarget creates a probe error for a specific target address.
func NewProbeErrorWithTarget(code ErrorCode, message, target string) *ProbeError {
	return &ProbeError{
		Code:    code,
		Message: message,
		Target:  target,
		Context: make(map[string]interface{}),
	}
}

// WrapProbeError wraps an existing error as a probe error.
func WrapProbeError(code ErrorCode, message string, err error) *ProbeError {
	return &ProbeError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// WrapProbeErrorWithTarget wraps an error with target information.
func WrapProbeErrorWithTarget(code ErrorCode, message, target string, err error) *ProbeError {
	return &ProbeError{
		Code:    code,
		Message: message,
		Target:  target,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// SourceError represents address source errors.
type SourceError struct {
	Code    ErrorCode
	Message string
	Source  string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s (source: %s)", e.Code, e.Message, e.Source)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Cause
}

// NewSourceError creates a new source error.
func NewSourceError(code ErrorCode, message string) *SourceError {
	return &SourceError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapSourceError wraps an existing error as a source error.
func WrapSourceError(code ErrorCode, message string, err error) *SourceError {
	return &SourceError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// SinkError represents output sink errors.
type SinkError struct {
	Code    ErrorCode
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s (path: %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *SinkError) Unwrap() error {
	return e.Cause
}

// NewSinkError creates a new sink error for a file path.
func NewSinkError(code ErrorCode, message, path string) *SinkError {
	return &SinkError{
		Code:    code,
		Message: message,
		Path:    path,
	}
}

// WrapSinkError wraps an existing error as a sink error.
func WrapSinkError(code ErrorCode, message, path string, err error) *SinkError {
	return &SinkError{
		Code:    code,
		Message: message,
		Path:    path,
		Cause:   err,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
	}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one,
// unwrapping as needed.
func GetCode(err error) ErrorCode {
	var probeErr *ProbeError
	if stderrors.As(err, &probeErr) {
		return probeErr.Code
	}
	var sourceErr *SourceError
	if stderrors.As(err, &sourceErr) {
		return sourceErr.Code
	}
	var sinkErr *SinkError
	if stderrors.As(err, &sinkErr) {
		return sinkErr.Code
	}
	var configErr *ConfigError
	if stderrors.As(err, &configErr) {
		return configErr.Code
	}
	return CodeUnknown
}

// IsFatal determines if an error indicates a fatal condition that should stop
// the run before any probing starts. Individual probe failures are never fatal.
func IsFatal(err error) bool {
	code := GetCode(err)
	switch code {
	case CodeConfiguration, CodeValidation, CodeSinkOpen, CodeFileNotFound:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrSinkOpen creates an error for output sink open failures.
func ErrSinkOpen(path string, err error) *SinkError {
	return WrapSinkError(CodeSinkOpen, "Failed to open output sink", path, err)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "Required configuration field missing", field, nil)
}

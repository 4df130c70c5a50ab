// Package errors provides structured error handling for radiomap operations.
// It defines error codes, error types, and provides utilities for creating
// and handling errors with context and structured information.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"
	CodePermission    ErrorCode = "PERMISSION"

	// Wireless scanning errors.
	CodeScanFailed  ErrorCode = "SCAN_FAILED"
	CodeToolMissing ErrorCode = "TOOL_MISSING"
	CodeParseFailed ErrorCode = "PARSE_FAILED"

	// Sensor errors.
	CodeSensorInit        ErrorCode = "SENSOR_INIT"
	CodeSensorRead        ErrorCode = "SENSOR_READ"
	CodeSensorUnavailable ErrorCode = "SENSOR_UNAVAILABLE"

	// Storage errors.
	CodeFileNotFound    ErrorCode = "FILE_NOT_FOUND"
	CodeFilePermission  ErrorCode = "FILE_PERMISSION"
	CodeDirectoryCreate ErrorCode = "DIRECTORY_CREATE"
	CodeStorageWrite    ErrorCode = "STORAGE_WRITE"
	CodeStorageRead     ErrorCode = "STORAGE_READ"
)

// ScanError represents an error that occurred during wireless scanning.
type ScanError struct {
	Code      ErrorCode
	Message   string
	Interface string
	Cause     error
	Context   map[string]interface{}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Interface != "" {
		return fmt.Sprintf("[%s] %s (interface: %s)", e.Code, e.Message, e.Interface)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *ScanError) WithContext(key string, value interface{}) *ScanError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewScanErrorWithInterface creates a scan error for a specific interface.
func NewScanErrorWithInterface(code ErrorCode, message, iface string) *ScanError {
	return &ScanError{
		Code:      code,
		Message:   message,
		Interface: iface,
		Context:   make(map[string]interface{}),
	}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// SensorError represents an error from a hardware sensor modality.
type SensorError struct {
	Code    ErrorCode
	Message string
	Sensor  string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *SensorError) Error() string {
	if e.Sensor != "" {
		return fmt.Sprintf("[%s] %s (sensor: %s)", e.Code, e.Message, e.Sensor)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *SensorError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *SensorError) WithContext(key string, value interface{}) *SensorError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewSensorError creates a new sensor error.
func NewSensorError(code ErrorCode, message, sensor string) *SensorError {
	return &SensorError{
		Code:    code,
		Message: message,
		Sensor:  sensor,
		Context: make(map[string]interface{}),
	}
}

// WrapSensorError wraps an existing error as a sensor error.
func WrapSensorError(code ErrorCode, message, sensor string, err error) *SensorError {
	return &SensorError{
		Code:    code,
		Message: message,
		Sensor:  sensor,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// StorageError represents CSV storage errors.
type StorageError struct {
	Code    ErrorCode
	Message string
	Path    string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s (path: %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new storage error.
func NewStorageError(code ErrorCode, message, path string) *StorageError {
	return &StorageError{
		Code:    code,
		Message: message,
		Path:    path,
		Context: make(map[string]interface{}),
	}
}

// WrapStorageError wraps an existing error as a storage error.
func WrapStorageError(code ErrorCode, message, path string, err error) *StorageError {
	return &StorageError{
		Code:    code,
		Message: message,
		Path:    path,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// GetCode extracts the error code from any radiomap error type.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ScanError:
		return e.Code
	case *SensorError:
		return e.Code
	case *StorageError:
		return e.Code
	default:
		return CodeUnknown
	}
}

// IsTimeout reports whether the error represents a timeout.
func IsTimeout(err error) bool {
	return GetCode(err) == CodeTimeout
}

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Descriptor errors
	ErrDescriptorRead    ErrorCode = "DESCRIPTOR_READ"
	ErrDescriptorInvalid ErrorCode = "DESCRIPTOR_INVALID"

	// Pipeline step errors. Every one of these is terminal for a run.
	ErrFetch              ErrorCode = "FETCH"
	ErrCorruptSource      ErrorCode = "CORRUPT_SOURCE"
	ErrChecksumAlgorithm  ErrorCode = "CHECKSUM_ALGORITHM"
	ErrUnrecognizedFormat ErrorCode = "UNRECOGNIZED_FORMAT"
	ErrExtraction         ErrorCode = "EXTRACTION"
	ErrPatchFailed        ErrorCode = "PATCH_FAILED"
	ErrOverlay            ErrorCode = "OVERLAY"

	// FileSystem errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrFileCreate   ErrorCode = "FILE_CREATE"
	ErrDirCreate    ErrorCode = "DIR_CREATE"
)

// SrcpackError represents a structured error with code and details
type SrcpackError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *SrcpackError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *SrcpackError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *SrcpackError) Is(target error) bool {
	var targetErr *SrcpackError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new SrcpackError with the given code and message
func New(code ErrorCode, message string) *SrcpackError {
	return &SrcpackError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new SrcpackError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *SrcpackError {
	return &SrcpackError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a SrcpackError
func Wrap(err error, code ErrorCode, message string) *SrcpackError {
	if err == nil {
		return nil
	}
	return &SrcpackError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *SrcpackError {
	if err == nil {
		return nil
	}
	return &SrcpackError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *SrcpackError) WithDetail(key string, value interface{}) *SrcpackError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *SrcpackError) WithDetails(details map[string]interface{}) *SrcpackError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var srcErr *SrcpackError
	if errors.As(err, &srcErr) {
		return srcErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a SrcpackError
func GetErrorCode(err error) ErrorCode {
	var srcErr *SrcpackError
	if errors.As(err, &srcErr) {
		return srcErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a SrcpackError
func GetErrorDetails(err error) map[string]interface{} {
	var srcErr *SrcpackError
	if errors.As(err, &srcErr) {
		return srcErr.Details
	}
	return nil
}

// IsFatal reports whether err is one of the pipeline step failures that end a run.
func IsFatal(err error) bool {
	switch GetErrorCode(err) {
	case ErrFetch, ErrCorruptSource, ErrChecksumAlgorithm, ErrUnrecognizedFormat,
		ErrExtraction, ErrPatchFailed, ErrOverlay:
		return true
	}
	return false
}

// Is reports whether any error in err's chain matches target, as errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target, as errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants, grouped by the failure class they represent.
// All pipeline and collaborator code MUST use these constants instead of
// hardcoded strings.
const (
	// Configuration (rejected eagerly, before any external call)
	ErrCodeConfigLookbackTooShort ErrorCode = "config_lookback_too_short"
	ErrCodeConfigThresholdSign    ErrorCode = "config_threshold_sign_invalid"
	ErrCodeConfigInvalidDate      ErrorCode = "config_reference_date_invalid"
	ErrCodeConfigMissingSetting   ErrorCode = "config_missing_setting"
	ErrCodeConfigInvalid          ErrorCode = "config_invalid"

	// Setup (gateway authentication/connection cannot be established)
	ErrCodeSetupAuth       ErrorCode = "setup_authentication_failed"
	ErrCodeSetupConnection ErrorCode = "setup_connection_failed"

	// Data (terminal for the run, not for the operator)
	ErrCodeDataUnavailable    ErrorCode = "data_unavailable"
	ErrCodeDataBandMissing    ErrorCode = "data_band_missing"
	ErrCodeDataExtentMismatch ErrorCode = "data_extent_mismatch"
	ErrCodeDataBadRaster      ErrorCode = "data_raster_undecodable"

	// Partial (run continues with a degraded input)
	ErrCodePartialBoundary ErrorCode = "partial_boundary_fallback"

	// Upstream (transport-level failures from collaborator services)
	ErrCodeUpstreamImagery     ErrorCode = "upstream_imagery_failed"
	ErrCodeUpstreamVectorizer  ErrorCode = "upstream_vectorizer_failed"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamBadPayload  ErrorCode = "upstream_payload_invalid"

	// Internal
	ErrCodeInternalExport     ErrorCode = "internal_export_failed"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// ExitCode maps an ErrorCode to the process exit code for the CLI entrypoints.
//
// A run that ends because no qualifying imagery exists is a completed run with
// a no-data outcome, so data_unavailable maps to 0. Everything else is a real
// failure and maps to 1.
func (c ErrorCode) ExitCode() int {
	s := string(c)
	switch {
	case c == ErrCodeDataUnavailable:
		return 0
	case c == ErrCodePartialBoundary:
		// Boundary fallback never terminates a run on its own.
		return 0
	case strings.HasPrefix(s, "config_"),
		strings.HasPrefix(s, "setup_"),
		strings.HasPrefix(s, "data_"),
		strings.HasPrefix(s, "upstream_"),
		strings.HasPrefix(s, "internal_"):
		return 1
	default:
		return 1
	}
}

// AppError is the standard application error type used throughout the pipeline.
// Domain and collaborator errors are expressed as AppError to enable consistent
// formatting, exit-code mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code corresponding to this error's code.
func (e *AppError) ExitCode() int {
	return e.Code.ExitCode()
}

// WithDetails returns a copy of the error with the provided details merged in.
// Useful for adding context without mutating a shared error value.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// CodeOf extracts the ErrorCode from an error chain. Errors that are not
// AppErrors report ErrCodeInternalUnexpected.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalUnexpected
}

// IsCode reports whether the error chain contains an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

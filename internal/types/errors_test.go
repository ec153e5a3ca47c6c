package types

import (
	"errors"
	"fmt"
	"testing"
)

// TestAppErrorImplementsError verifies that *AppError satisfies the error interface.
func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies Error() produces the "code: message" format.
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeConfigLookbackTooShort,
		Message: "lookback must be at least 15 days",
	}

	expected := "config_lookback_too_short: lookback must be at least 15 days"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

// TestAppErrorUnwrap verifies error chain support via Unwrap.
func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := NewAppError(ErrCodeSetupConnection, "cannot reach imagery catalog", underlying)

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", appErr.Unwrap(), underlying)
	}
	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should find the underlying error through AppError")
	}
}

// TestAppErrorErrorsAs verifies errors.As extracts AppError from a wrapped chain.
func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeDataUnavailable, "no qualifying scenes", nil)
	wrapped := fmt.Errorf("baseline fetch: %w", appErr)

	var extracted *AppError
	if !errors.As(wrapped, &extracted) {
		t.Fatal("errors.As failed to extract AppError from wrapped chain")
	}
	if extracted.Code != ErrCodeDataUnavailable {
		t.Errorf("extracted code = %q, want %q", extracted.Code, ErrCodeDataUnavailable)
	}
}

// TestAppErrorWithDetails verifies details merge without mutating the original.
func TestAppErrorWithDetails(t *testing.T) {
	original := NewAppErrorWithDetails(ErrCodeUpstreamImagery, "process request failed", nil,
		map[string]any{"tile": "0,0"})

	enriched := original.WithDetails(map[string]any{"window": "2024-05-31 to 2024-06-15"})

	if len(original.Details) != 1 {
		t.Errorf("original details mutated: %v", original.Details)
	}
	if enriched.Details["tile"] != "0,0" || enriched.Details["window"] != "2024-05-31 to 2024-06-15" {
		t.Errorf("merged details incomplete: %v", enriched.Details)
	}
}

// TestErrorCodeExitCode verifies the exit-code mapping for each failure class.
func TestErrorCodeExitCode(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeDataUnavailable, 0},
		{ErrCodePartialBoundary, 0},
		{ErrCodeConfigLookbackTooShort, 1},
		{ErrCodeConfigThresholdSign, 1},
		{ErrCodeSetupAuth, 1},
		{ErrCodeSetupConnection, 1},
		{ErrCodeUpstreamVectorizer, 1},
		{ErrCodeInternalUnexpected, 1},
		{ErrorCode("something_unknown"), 1},
	}

	for _, tc := range cases {
		if got := tc.code.ExitCode(); got != tc.want {
			t.Errorf("ExitCode(%q) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

// TestCodeOf verifies code extraction from plain and wrapped errors.
func TestCodeOf(t *testing.T) {
	appErr := NewAppError(ErrCodeConfigInvalidDate, "invalid calendar date", nil)

	if got := CodeOf(fmt.Errorf("loading params: %w", appErr)); got != ErrCodeConfigInvalidDate {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, ErrCodeConfigInvalidDate)
	}
	if got := CodeOf(errors.New("plain")); got != ErrCodeInternalUnexpected {
		t.Errorf("CodeOf(plain) = %q, want %q", got, ErrCodeInternalUnexpected)
	}
}

// TestIsCode verifies code matching through wrapping.
func TestIsCode(t *testing.T) {
	appErr := NewAppError(ErrCodeDataUnavailable, "zero scenes", nil)
	wrapped := fmt.Errorf("current window: %w", appErr)

	if !IsCode(wrapped, ErrCodeDataUnavailable) {
		t.Error("IsCode should match the wrapped AppError code")
	}
	if IsCode(wrapped, ErrCodeSetupAuth) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(errors.New("plain"), ErrCodeDataUnavailable) {
		t.Error("IsCode should not match a non-AppError")
	}
}

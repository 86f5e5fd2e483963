package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDexError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("original error")

	// When: wrapping with DexError
	dexErr := New(ErrCodeFileNotFound, "file not found: note.md", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, dexErr)
	assert.Equal(t, originalErr, errors.Unwrap(dexErr))
	assert.True(t, errors.Is(dexErr, originalErr))
}

func TestDexError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "file error",
			code:     ErrCodeFileNotFound,
			message:  "note.md not found",
			expected: "[ERR_201_FILE_NOT_FOUND] note.md not found",
		},
		{
			name:     "capsule error",
			code:     ErrCodeCapsuleIntegrity,
			message:  "record crc mismatch",
			expected: "[ERR_602_CAPSULE_INTEGRITY] record crc mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestDexError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := New(ErrCodeFileNotFound, "file A not found", nil)
	err2 := New(ErrCodeFileNotFound, "file B not found", nil)

	// Then: they match by code
	assert.True(t, errors.Is(err1, err2))
}

func TestDexError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	// Given: two errors with different codes
	err1 := New(ErrCodeFileNotFound, "file not found", nil)
	err2 := New(ErrCodeConfigNotFound, "config not found", nil)

	// Then: they don't match
	assert.False(t, errors.Is(err1, err2))
}

func TestDexError_WithDetails_AddsContext(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeFileNotFound, "file not found", nil)

	// When: adding details
	err = err.WithDetail("path", "/notes/today.md")
	err = err.WithDetail("size", "1024")

	// Then: details are available
	assert.Equal(t, "/notes/today.md", err.Details["path"])
	assert.Equal(t, "1024", err.Details["size"])
}

func TestDexError_WithSuggestion_AddsSuggestion(t *testing.T) {
	// Given: a store error
	err := New(ErrCodeStoreBusy, "store locked", nil)

	// When: adding suggestion
	err = err.WithSuggestion("Close other notedex processes")

	// Then: suggestion is available
	assert.Equal(t, "Close other notedex processes", err.Suggestion)
}

func TestDexError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeFileNotFound, CategoryIO},
		{ErrCodeStoreOpen, CategoryIO},
		{ErrCodeNoteNotFound, CategoryIO},
		{ErrCodeInvalidInput, CategoryValidation},
		{ErrCodeQueryEmpty, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeIndexFailed, CategoryInternal},
		{ErrCodeCapsuleFormat, CategoryCapsule},
		{ErrCodeCapsuleIntegrity, CategoryCapsule},
		{ErrCodeCapsuleCorrupt, CategoryCapsule},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestDexError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeStoreCorrupt, SeverityFatal},
		{ErrCodeDiskFull, SeverityFatal},
		{ErrCodeFileNotFound, SeverityError},
		{ErrCodeFileChanged, SeverityWarning}, // Retryable, so warning
		{ErrCodeStoreBusy, SeverityWarning},
		{ErrCodeCapsuleCorrupt, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestDexError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeFileChanged, true},
		{ErrCodeStoreBusy, true},
		{ErrCodeFileNotFound, false},
		{ErrCodeConfigInvalid, false},
		{ErrCodeCapsuleIntegrity, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesDexErrorFromError(t *testing.T) {
	// Given: a standard error
	originalErr := errors.New("something went wrong")

	// When: wrapping with a code
	dexErr := Wrap(ErrCodeInternal, originalErr)

	// Then: creates proper DexError
	require.NotNil(t, dexErr)
	assert.Equal(t, ErrCodeInternal, dexErr.Code)
	assert.Equal(t, "something went wrong", dexErr.Message)
	assert.Equal(t, originalErr, dexErr.Cause)
}

func TestConfigError_CreatesConfigCategoryError(t *testing.T) {
	err := ConfigError("invalid yaml syntax", nil)

	assert.Equal(t, CategoryConfig, err.Category)
	assert.Contains(t, err.Code, "CONFIG")
}

func TestIOError_CreatesIOCategoryError(t *testing.T) {
	err := IOError("cannot read file", nil)

	assert.Equal(t, CategoryIO, err.Category)
}

func TestStoreError_CreatesIOCategoryError(t *testing.T) {
	err := StoreError("insert failed", nil)

	assert.Equal(t, CategoryIO, err.Category)
}

func TestValidationError_CreatesValidationCategoryError(t *testing.T) {
	err := ValidationError("query cannot be empty", nil)

	assert.Equal(t, CategoryValidation, err.Category)
}

func TestCapsuleError_CreatesCapsuleCategoryError(t *testing.T) {
	err := CapsuleError(ErrCodeCapsuleFormat, "bad signature", nil)

	assert.Equal(t, CategoryCapsule, err.Category)
	assert.Equal(t, ErrCodeCapsuleFormat, err.Code)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable DexError",
			err:      New(ErrCodeFileChanged, "file changed during scan", nil),
			expected: true,
		},
		{
			name:     "non-retryable DexError",
			err:      New(ErrCodeFileNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeStoreBusy, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "corrupt store error",
			err:      New(ErrCodeStoreCorrupt, "store corrupt", nil),
			expected: true,
		},
		{
			name:     "disk full error",
			err:      New(ErrCodeDiskFull, "no space left", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(ErrCodeFileNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

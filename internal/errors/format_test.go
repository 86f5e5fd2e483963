package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	// Given: a DexError
	err := New(ErrCodeFileNotFound, "file 'config.yaml' not found", nil)

	// When: formatting for user (no debug)
	result := FormatForUser(err, false)

	// Then: contains message
	assert.Contains(t, result, "file 'config.yaml' not found")
	// And: contains error code at end
	assert.Contains(t, result, "[ERR_201_FILE_NOT_FOUND]")
}

func TestFormatForUser_WithSuggestion(t *testing.T) {
	// Given: an error with suggestion
	err := New(ErrCodeCapsuleCorrupt, "capsule is missing segments", nil).
		WithSuggestion("Rebuild the capsule with 'notedex index'")

	// When: formatting for user
	result := FormatForUser(err, false)

	// Then: contains suggestion
	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "notedex index")
}

func TestFormatForUser_DebugIncludesCause(t *testing.T) {
	// Given: an error with a cause
	cause := errors.New("unexpected EOF")
	err := New(ErrCodeCapsuleFormat, "truncated capsule", cause)

	// When: formatting with debug
	result := FormatForUser(err, true)

	// Then: cause is shown
	assert.Contains(t, result, "Cause:")
	assert.Contains(t, result, "unexpected EOF")

	// And: normal mode hides it
	assert.NotContains(t, FormatForUser(err, false), "Cause:")
}

func TestFormatForUser_StandardError(t *testing.T) {
	// Given: a standard Go error
	err := errors.New("something went wrong")

	// When: formatting for user
	result := FormatForUser(err, false)

	// Then: shows generic message
	assert.Contains(t, result, "something went wrong")
}

func TestFormatForUser_NilError(t *testing.T) {
	// When: formatting nil
	result := FormatForUser(nil, false)

	// Then: returns empty string
	assert.Empty(t, result)
}

func TestFormatJSON_BasicError(t *testing.T) {
	// Given: a DexError with details
	err := New(ErrCodeFileNotFound, "file not found", nil).
		WithDetail("path", "/notes/today.md").
		WithSuggestion("Check the file path")

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: valid JSON
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	// And: contains expected fields
	assert.Equal(t, ErrCodeFileNotFound, result["code"])
	assert.Equal(t, "file not found", result["message"])
	assert.Equal(t, string(CategoryIO), result["category"])
	assert.Equal(t, string(SeverityError), result["severity"])
	assert.Equal(t, "Check the file path", result["suggestion"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/notes/today.md", details["path"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	// Given: a standard error
	err := errors.New("generic error")

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: valid JSON with internal error code
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeInternal, result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	// When: formatting nil
	data, err := FormatJSON(nil)

	// Then: returns empty result
	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	// Given: an error with cause
	cause := errors.New("underlying error")
	err := New(ErrCodeInternal, "operation failed", cause)

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: includes cause
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}

func TestFormatForCLI_IncludesCodeAndHint(t *testing.T) {
	// Given: a corrupt capsule error
	err := New(ErrCodeCapsuleIntegrity, "record crc mismatch", nil).
		WithSuggestion("Re-download the capsule or rebuild it")

	// When: formatting for CLI
	result := FormatForCLI(err)

	// Then: contains error info
	assert.Contains(t, result, "record crc mismatch")
	assert.Contains(t, result, "ERR_602_CAPSULE_INTEGRITY")
	assert.Contains(t, result, "Hint:")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	// Given: a simple error
	err := New(ErrCodeFileNotFound, "file not found", nil)

	// When: formatting for CLI
	result := FormatForCLI(err)

	// Then: is concise
	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "Should be concise")
}

func TestFormatForLog_StructuredFields(t *testing.T) {
	// Given: an error with cause and detail
	cause := errors.New("disk error")
	err := New(ErrCodeStoreQuery, "insert failed", cause).WithDetail("table", "notes")

	// When: formatting for logging
	fields := FormatForLog(err)

	// Then: slog-ready key-value pairs
	assert.Equal(t, ErrCodeStoreQuery, fields["error_code"])
	assert.Equal(t, "insert failed", fields["message"])
	assert.Equal(t, "disk error", fields["cause"])
	assert.Equal(t, "notes", fields["detail_table"])
}

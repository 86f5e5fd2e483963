package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dexerrors "github.com/notedex/notedex/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	// Given: nil error
	var err error = nil

	// When: mapping the error
	result := MapError(err)

	// Then: returns nil
	assert.Nil(t, result)
}

func TestMapError_IndexNotBuilt(t *testing.T) {
	// Given: index not built error
	err := ErrIndexNotBuilt

	// When: mapping the error
	result := MapError(err)

	// Then: returns correct MCP error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeIndexNotBuilt, result.Code)
	assert.Contains(t, result.Message, "notedex index")
}

func TestMapError_DeadlineExceeded(t *testing.T) {
	// Given: deadline exceeded error
	err := context.DeadlineExceeded

	// When: mapping the error
	result := MapError(err)

	// Then: returns timeout error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "timed out")
}

func TestMapError_Canceled(t *testing.T) {
	// Given: context canceled error
	err := context.Canceled

	// When: mapping the error
	result := MapError(err)

	// Then: returns timeout error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "canceled")
}

func TestMapError_ToolNotFound(t *testing.T) {
	// Given: tool not found error
	err := ErrToolNotFound

	// When: mapping the error
	result := MapError(err)

	// Then: returns method not found error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeMethodNotFound, result.Code)
}

func TestMapError_InvalidParams(t *testing.T) {
	// Given: invalid params error
	err := ErrInvalidParams

	// When: mapping the error
	result := MapError(err)

	// Then: returns invalid params error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInvalidParams, result.Code)
}

func TestMapError_ResourceNotFound(t *testing.T) {
	// Given: resource not found error
	err := ErrResourceNotFound

	// When: mapping the error
	result := MapError(err)

	// Then: returns method not found error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeMethodNotFound, result.Code)
}

func TestMapError_UnknownError(t *testing.T) {
	// Given: unknown error
	err := errors.New("some unknown error")

	// When: mapping the error
	result := MapError(err)

	// Then: returns internal error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Contains(t, result.Message, "Internal server error")
}

func TestMapError_WrappedError(t *testing.T) {
	// Given: wrapped index not built error
	err := fmt.Errorf("failed to search: %w", ErrIndexNotBuilt)

	// When: mapping the error
	result := MapError(err)

	// Then: correctly identifies the wrapped error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeIndexNotBuilt, result.Code)
}

func TestMCPError_Error(t *testing.T) {
	// Given: an MCP error
	err := &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: "missing required field",
	}

	// When: calling Error()
	msg := err.Error()

	// Then: returns formatted message
	assert.Contains(t, msg, "MCP error")
	assert.Contains(t, msg, "-32602")
	assert.Contains(t, msg, "missing required field")
}

func TestNewInvalidParamsError(t *testing.T) {
	// Given: a custom message
	msg := "query parameter is required"

	// When: creating invalid params error
	err := NewInvalidParamsError(msg)

	// Then: returns error with custom message
	assert.Equal(t, ErrCodeInvalidParams, err.Code)
	assert.Equal(t, msg, err.Message)
}

func TestNewMethodNotFoundError(t *testing.T) {
	// Given: a tool name
	name := "unknown_tool"

	// When: creating method not found error
	err := NewMethodNotFoundError(name)

	// Then: returns error with tool name
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, name)
}

func TestNewResourceNotFoundError(t *testing.T) {
	// Given: a resource URI
	uri := "note://missing-note"

	// When: creating resource not found error
	err := NewResourceNotFoundError(uri)

	// Then: returns error with URI
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, uri)
}

func TestMapError_DexError_NoteNotFound(t *testing.T) {
	// Given: a DexError for a missing note
	err := dexerrors.New(dexerrors.ErrCodeNoteNotFound, "note 'groceries' not found", nil)

	// When: mapping the error
	result := MapError(err)

	// Then: returns the note not found MCP code
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeNoteNotFound, result.Code)
	assert.Contains(t, result.Message, "groceries")
}

func TestMapError_DexError_Validation(t *testing.T) {
	// Given: a DexError with validation category
	err := dexerrors.ValidationError("query cannot be empty", nil)

	// When: mapping the error
	result := MapError(err)

	// Then: returns invalid params error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInvalidParams, result.Code)
}

func TestMapError_DexError_Capsule(t *testing.T) {
	// Given: a DexError from capsule decoding
	err := dexerrors.CapsuleError(dexerrors.ErrCodeCapsuleIntegrity, "payload hash mismatch", nil)

	// When: mapping the error
	result := MapError(err)

	// Then: returns capsule invalid error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeCapsuleInvalid, result.Code)
	assert.Contains(t, result.Message, "hash mismatch")
}

func TestMapError_DexError_WithSuggestion(t *testing.T) {
	// Given: a DexError with suggestion
	err := dexerrors.New(dexerrors.ErrCodeNoteNotFound, "note not found", nil).
		WithSuggestion("Run 'notedex note list' to see stored notes.")

	// When: mapping the error
	result := MapError(err)

	// Then: message includes suggestion
	require.NotNil(t, result)
	assert.Contains(t, result.Message, "note not found")
	assert.Contains(t, result.Message, "notedex note list")
}

func TestMapError_DexError_Internal(t *testing.T) {
	// Given: an internal DexError
	err := dexerrors.InternalError("unexpected error", nil)

	// When: mapping the error
	result := MapError(err)

	// Then: returns internal error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
}

func TestMapError_WrappedDexError(t *testing.T) {
	// Given: a wrapped DexError
	dexErr := dexerrors.StoreError("database is locked", nil)
	err := fmt.Errorf("operation failed: %w", dexErr)

	// When: mapping the error
	result := MapError(err)

	// Then: correctly identifies the wrapped DexError
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Contains(t, result.Message, "database is locked")
}

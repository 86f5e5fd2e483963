// Package mcp implements the Model Context Protocol (MCP) server for
// notedex. It exposes the search index and note store to AI clients
// over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	dexerrors "github.com/notedex/notedex/internal/errors"
)

// Custom MCP error codes for notedex.
const (
	// ErrCodeIndexNotBuilt indicates no index has been built or loaded yet.
	ErrCodeIndexNotBuilt = -32001

	// ErrCodeNoteNotFound indicates the requested note does not exist.
	ErrCodeNoteNotFound = -32002

	// ErrCodeCapsuleInvalid indicates a capsule failed to decode or verify.
	ErrCodeCapsuleInvalid = -32003

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrIndexNotBuilt indicates no index has been built or loaded yet.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrResourceNotFound indicates the requested resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var dexErr *dexerrors.DexError
	if errors.As(err, &dexErr) {
		return mapDexError(dexErr)
	}

	switch {
	case errors.Is(err, ErrIndexNotBuilt):
		return &MCPError{
			Code:    ErrCodeIndexNotBuilt,
			Message: "No index available. Run 'notedex index' first.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Tool not found.",
		}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid parameters.",
		}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Resource not found.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a
// custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

// mapDexError converts a DexError to an MCPError by category, with a
// few specific codes carved out first.
func mapDexError(de *dexerrors.DexError) *MCPError {
	message := de.Message
	if de.Suggestion != "" {
		message = fmt.Sprintf("%s %s", de.Message, de.Suggestion)
	}

	if de.Code == dexerrors.ErrCodeNoteNotFound {
		return &MCPError{
			Code:    ErrCodeNoteNotFound,
			Message: message,
		}
	}

	switch de.Category {
	case dexerrors.CategoryValidation:
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: message,
		}
	case dexerrors.CategoryCapsule:
		return &MCPError{
			Code:    ErrCodeCapsuleInvalid,
			Message: message,
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: message,
		}
	}
}

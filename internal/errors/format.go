package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message.
// If debug is true, includes additional technical details.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	de, ok := err.(*DexError)
	if !ok {
		// Standard error - just return message
		return err.Error()
	}

	var sb strings.Builder

	// Main error message
	sb.WriteString("Error: ")
	sb.WriteString(de.Message)
	sb.WriteString("\n")

	// Suggestion if available
	if de.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(de.Suggestion)
		sb.WriteString("\n")
	}

	if debug && de.Cause != nil {
		sb.WriteString("\nCause: ")
		sb.WriteString(de.Cause.Error())
		sb.WriteString("\n")
	}

	// Error code for reference
	sb.WriteString(fmt.Sprintf("\n[%s]", de.Code))

	return sb.String()
}

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	de, ok := err.(*DexError)
	if !ok {
		// Wrap standard error
		de = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	// Error message with code
	sb.WriteString(fmt.Sprintf("Error: %s\n", de.Message))

	// Suggestion if available
	if de.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", de.Suggestion))
	}

	// Code reference
	sb.WriteString(fmt.Sprintf("  Code: %s\n", de.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error.
// Suitable for machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	de, ok := err.(*DexError)
	if !ok {
		// Wrap standard error
		de = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       de.Code,
		Message:    de.Message,
		Category:   string(de.Category),
		Severity:   string(de.Severity),
		Details:    de.Details,
		Suggestion: de.Suggestion,
		Retryable:  de.Retryable,
	}

	if de.Cause != nil {
		je.Cause = de.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	de, ok := err.(*DexError)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": de.Code,
		"message":    de.Message,
		"category":   string(de.Category),
		"severity":   string(de.Severity),
		"retryable":  de.Retryable,
	}

	if de.Cause != nil {
		result["cause"] = de.Cause.Error()
	}

	if de.Suggestion != "" {
		result["suggestion"] = de.Suggestion
	}

	for k, v := range de.Details {
		result["detail_"+k] = v
	}

	return result
}

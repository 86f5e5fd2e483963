package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dexerrors "github.com/notedex/notedex/internal/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", slog.String("error", err.Error()))
	}
}

// writeError maps an error onto the JSON error envelope. The HTTP
// status derives from the error code; the message is the bare DexError
// message since the code travels in its own field.
func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	code := ""
	status := http.StatusInternalServerError

	var dexErr *dexerrors.DexError
	if errors.As(err, &dexErr) {
		msg = dexErr.Message
		code = dexErr.Code
		status = statusForCode(dexErr.Code, dexErr.Category)
	}

	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func statusForCode(code string, category dexerrors.Category) int {
	switch code {
	case dexerrors.ErrCodeNoteNotFound, dexerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case dexerrors.ErrCodeStoreBusy, dexerrors.ErrCodeStoreOpen:
		return http.StatusServiceUnavailable
	}
	if category == dexerrors.CategoryValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

package errors_test

import (
	"errors"
	"fmt"
	"testing"

	dexerrors "github.com/notedex/notedex/internal/errors"
)

// TestWrapping_ThroughFmtErrorf verifies code matching survives %w chains.
func TestWrapping_ThroughFmtErrorf(t *testing.T) {
	base := dexerrors.New(dexerrors.ErrCodeCapsuleIntegrity, "crc mismatch", nil)
	wrapped := fmt.Errorf("loading capsule: %w", base)

	target := dexerrors.New(dexerrors.ErrCodeCapsuleIntegrity, "", nil)
	if !errors.Is(wrapped, target) {
		t.Errorf("expected wrapped error to match by code, got: %v", wrapped)
	}
}

// TestWrapping_AsExtractsDexError verifies errors.As digs out the typed error.
func TestWrapping_AsExtractsDexError(t *testing.T) {
	base := dexerrors.New(dexerrors.ErrCodeStoreOpen, "cannot open store", errors.New("disk io"))
	wrapped := fmt.Errorf("engine init: %w", base)

	var de *dexerrors.DexError
	if !errors.As(wrapped, &de) {
		t.Fatalf("expected errors.As to extract DexError from: %v", wrapped)
	}
	if de.Code != dexerrors.ErrCodeStoreOpen {
		t.Errorf("expected code %s, got %s", dexerrors.ErrCodeStoreOpen, de.Code)
	}
}

// TestWrapping_CausePreservedTwoLevels verifies the original error stays reachable.
func TestWrapping_CausePreservedTwoLevels(t *testing.T) {
	root := errors.New("no such file")
	mid := dexerrors.Wrap(dexerrors.ErrCodeFileNotFound, root)
	top := fmt.Errorf("ingest: %w", mid)

	if !errors.Is(top, root) {
		t.Errorf("expected root cause to be reachable through the chain, got: %v", top)
	}
}

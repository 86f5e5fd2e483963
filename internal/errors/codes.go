// Package errors provides structured error handling for notedex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO and store errors (file, disk, sqlite)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
//   - 6XX: Capsule errors (format, integrity, corruption)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, disk, and store I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryCapsule indicates capsule encode/decode errors.
	CategoryCapsule Category = "CAPSULE"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"

	// IO and store errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull       = "ERR_203_DISK_FULL"
	ErrCodeFileTooLarge   = "ERR_204_FILE_TOO_LARGE"
	ErrCodeStoreOpen      = "ERR_205_STORE_OPEN"
	ErrCodeStoreQuery     = "ERR_206_STORE_QUERY"
	ErrCodeStoreCorrupt   = "ERR_207_STORE_CORRUPT"
	ErrCodeFileChanged    = "ERR_208_FILE_CHANGED"
	ErrCodeStoreBusy      = "ERR_209_STORE_BUSY"
	ErrCodeNoteNotFound   = "ERR_210_NOTE_NOT_FOUND"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"
	ErrCodeInvalidPath  = "ERR_403_INVALID_PATH"
	ErrCodeInvalidKey   = "ERR_404_INVALID_KEY"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeIndexFailed  = "ERR_502_INDEX_FAILED"
	ErrCodeSearchFailed = "ERR_503_SEARCH_FAILED"
	ErrCodeIngestFailed = "ERR_504_INGEST_FAILED"

	// Capsule errors (600-699)
	ErrCodeCapsuleFormat    = "ERR_601_CAPSULE_FORMAT"
	ErrCodeCapsuleIntegrity = "ERR_602_CAPSULE_INTEGRITY"
	ErrCodeCapsuleCorrupt   = "ERR_603_CAPSULE_CORRUPT"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	case '6':
		return CategoryCapsule
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Fatal errors
	switch code {
	case ErrCodeStoreCorrupt, ErrCodeDiskFull:
		return SeverityFatal
	}

	// Retryable errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	// Default to error severity
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Transient conditions only: a file rewritten mid-scan, a busy sqlite handle.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeFileChanged, ErrCodeStoreBusy:
		return true
	default:
		return false
	}
}

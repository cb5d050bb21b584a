// Package errors provides structured error handling for amanrag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (passage store, vector files, data dir)
//   - 3XX: Collaborator errors (vector index, query expansion, generation, embedding)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig       Category = "CONFIG"
	CategoryStorage      Category = "STORAGE"
	CategoryCollaborator Category = "COLLABORATOR"
	CategoryValidation   Category = "VALIDATION"
	CategoryInternal     Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the operation must abort and previous state stays authoritative.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the current query or request failed.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeFileNotFound  = "ERR_201_FILE_NOT_FOUND"
	ErrCodeStoreFailed   = "ERR_202_STORE_FAILED"
	ErrCodeCorruptIndex  = "ERR_203_CORRUPT_INDEX"
	ErrCodeDataDirLocked = "ERR_204_DATA_DIR_LOCKED"

	// Collaborator errors (300-399)
	ErrCodeRetrievalUnavailable = "ERR_301_RETRIEVAL_UNAVAILABLE"
	ErrCodeExpansionFailed      = "ERR_302_EXPANSION_FAILED"
	ErrCodeGenerationFailed     = "ERR_303_GENERATION_FAILED"
	ErrCodeEmbeddingFailed      = "ERR_304_EMBEDDING_FAILED"
	ErrCodeModelServerDown      = "ERR_305_MODEL_SERVER_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeDimensionMismatch = "ERR_403_DIMENSION_MISMATCH"
	ErrCodeInvalidOptions    = "ERR_404_INVALID_OPTIONS"

	// Internal errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeIndexInconsistent = "ERR_502_INDEX_INCONSISTENT"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryCollaborator
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeIndexInconsistent:
		return SeverityFatal
	}

	if isRecoverableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRecoverableCode reports codes that callers absorb locally by degrading
// (fewer candidates, fewer query variants) instead of failing the query.
func isRecoverableCode(code string) bool {
	switch code {
	case ErrCodeRetrievalUnavailable, ErrCodeExpansionFailed:
		return true
	default:
		return false
	}
}

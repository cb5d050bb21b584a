package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmanError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("connection refused")

	// When: wrapping with AmanError
	amanErr := New(ErrCodeRetrievalUnavailable, "vector index unreachable", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, amanErr)
	assert.Equal(t, originalErr, errors.Unwrap(amanErr))
	assert.True(t, errors.Is(amanErr, originalErr))
}

func TestAmanError_Error_ReturnsFormattedMessage(t *testing.T) {
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
			name:     "generation error",
			code:     ErrCodeGenerationFailed,
			message:  "model not found",
			expected: "[ERR_303_GENERATION_FAILED] model not found",
		},
		{
			name:     "inconsistent index",
			code:     ErrCodeIndexInconsistent,
			message:  "3 token rows for 2 passages",
			expected: "[ERR_502_INDEX_INCONSISTENT] 3 token rows for 2 passages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestAmanError_Is_MatchesSentinelByCode(t *testing.T) {
	// Given: a generation error wrapped by fmt
	err := fmt.Errorf("query: %w", New(ErrCodeGenerationFailed, "boom", nil))

	// Then: it matches the sentinel but not other codes
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.False(t, errors.Is(err, ErrRetrievalUnavailable))
}

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code        string
		category    Category
		severity    Severity
		recoverable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeStoreFailed, CategoryStorage, SeverityError, false},
		{ErrCodeRetrievalUnavailable, CategoryCollaborator, SeverityWarning, true},
		{ErrCodeExpansionFailed, CategoryCollaborator, SeverityWarning, true},
		{ErrCodeGenerationFailed, CategoryCollaborator, SeverityError, false},
		{ErrCodeQueryEmpty, CategoryValidation, SeverityError, false},
		{ErrCodeIndexInconsistent, CategoryInternal, SeverityFatal, false},
		{"BOGUS", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.recoverable, err.Recoverable)
		})
	}
}

func TestHelpers_LookThroughWrapping(t *testing.T) {
	// Given: a fatal error buried in a chain
	err := fmt.Errorf("rebuild: %w", New(ErrCodeIndexInconsistent, "mismatch", nil))

	// Then: helpers find it
	assert.True(t, IsFatal(err))
	assert.False(t, IsRecoverable(err))
	assert.Equal(t, ErrCodeIndexInconsistent, GetCode(err))
	assert.Equal(t, CategoryInternal, GetCategory(err))

	// And: plain errors yield zero values
	plain := errors.New("plain")
	assert.False(t, IsFatal(plain))
	assert.Empty(t, GetCode(plain))
	assert.Empty(t, GetCode(nil))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestAmanError_WithDetailAndSuggestion(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeGenerationFailed, "model missing", nil)

	// When: adding context
	err.WithDetail("model", "llama3").WithSuggestion("Run: ollama pull llama3")

	// Then: both are present
	assert.Equal(t, "llama3", err.Details["model"])
	assert.Equal(t, "Run: ollama pull llama3", err.Suggestion)
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"retrieval unavailable", amerrors.New(amerrors.ErrCodeRetrievalUnavailable, "no strategy", nil), ErrCodeRetrievalUnavailable},
		{"embedding failed", amerrors.New(amerrors.ErrCodeEmbeddingFailed, "embed", nil), ErrCodeEmbeddingFailed},
		{"generation failed", amerrors.New(amerrors.ErrCodeGenerationFailed, "llm", nil), ErrCodeGenerationFailed},
		{"source not found", amerrors.New(amerrors.ErrCodeFileNotFound, "source not found", nil), ErrCodeNotFound},
		{"validation", amerrors.ValidationError("bad", nil), ErrCodeInvalidParams},
		{"query empty", amerrors.New(amerrors.ErrCodeQueryEmpty, "empty", nil), ErrCodeInvalidParams},
		{"invalid options", amerrors.New(amerrors.ErrCodeInvalidOptions, "k", nil), ErrCodeInvalidParams},
		{"store failure", amerrors.StoreError("disk", nil), ErrCodeInternalError},
		{"wrapped aman error", fmt.Errorf("ask: %w", amerrors.New(amerrors.ErrCodeGenerationFailed, "llm", nil)), ErrCodeGenerationFailed},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"query log disabled", ErrQueryLogDisabled, ErrCodeNotFound},
		{"plain error", errors.New("boom"), ErrCodeInternalError},
		{"already mapped", NewInvalidParamsError("x"), ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapError(tt.err).Code)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := amerrors.New(amerrors.ErrCodeGenerationFailed, "answer generation failed", nil).
		WithSuggestion("Check that the language model server is running")

	mapped := MapError(err)

	assert.Equal(t, "answer generation failed Check that the language model server is running", mapped.Message)
}

func TestMapError_HidesInternalDetails(t *testing.T) {
	mapped := MapError(errors.New("open /home/user/secret.db: permission denied"))

	assert.NotContains(t, mapped.Message, "secret.db")
}

func TestNewResourceNotFoundError(t *testing.T) {
	err := NewResourceNotFoundError("amanrag://nope")

	assert.Equal(t, ErrCodeNotFound, err.Code)
	assert.Contains(t, err.Error(), "amanrag://nope")
}

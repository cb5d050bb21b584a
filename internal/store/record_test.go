package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

func TestReadJSONL(t *testing.T) {
	// Given: two records separated by a blank line
	input := `{"text":"Cats purr.","source":"animals.pdf","page":4,"tags":["pets"]}

{"text":"Dogs bark.","source":"animals.pdf"}
`

	// When: decoding
	passages, err := ReadJSONL(strings.NewReader(input))
	require.NoError(t, err)

	// Then: both passages carry their metadata
	require.Len(t, passages, 2)
	assert.Equal(t, "animals.pdf (Page 4)", passages[0].Label())
	assert.Equal(t, []string{"pets"}, passages[0].Metadata.Tags)
	assert.Equal(t, "animals.pdf", passages[1].Label())
}

func TestReadJSONL_Empty(t *testing.T) {
	passages, err := ReadJSONL(strings.NewReader(""))
	require.NoError(t, err)
	assert.NotNil(t, passages)
	assert.Empty(t, passages)
}

func TestReadJSONL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"malformed", "{\"text\":\"ok\",\"source\":\"a\"}\n{not json", "line 2: invalid JSON"},
		{"missing text", `{"source":"a"}`, "line 1: passage text is empty"},
		{"missing source", `{"text":"hello"}`, "line 1: passage source is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSONL(strings.NewReader(tt.input))

			require.Error(t, err)
			assert.Equal(t, amanerrors.ErrCodeInvalidInput, amanerrors.GetCode(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

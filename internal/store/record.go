package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// maxRecordLine bounds one JSONL line.
const maxRecordLine = 4 * 1024 * 1024

// PassageRecord is the flat wire form of a passage used by JSONL ingestion
// and the HTTP API.
type PassageRecord struct {
	Text   string            `json:"text"`
	Source string            `json:"source"`
	Page   *int              `json:"page,omitempty"`
	Tags   []string          `json:"tags,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// Passage converts the record.
func (r PassageRecord) Passage() Passage {
	return Passage{
		Text: r.Text,
		Metadata: Metadata{
			SourceID: r.Source,
			Page:     r.Page,
			Tags:     r.Tags,
			Extra:    r.Extra,
		},
	}
}

// Validate rejects records without text or source.
func (r PassageRecord) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return amanerrors.ValidationError("passage text is empty", nil)
	}
	if strings.TrimSpace(r.Source) == "" {
		return amanerrors.ValidationError("passage source is empty", nil)
	}
	return nil
}

// ReadJSONL decodes one PassageRecord per line. Blank lines are skipped.
// The first malformed or invalid line fails the whole read with its line number.
func ReadJSONL(r io.Reader) ([]Passage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLine)

	passages := []Passage{}
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec PassageRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, amanerrors.ValidationError(fmt.Sprintf("line %d: invalid JSON", line), err)
		}
		if err := rec.Validate(); err != nil {
			var ae *amanerrors.AmanError
			if errors.As(err, &ae) {
				ae.Message = fmt.Sprintf("line %d: %s", line, ae.Message)
			}
			return nil, err
		}
		passages = append(passages, rec.Passage())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read passages: %w", err)
	}
	return passages, nil
}

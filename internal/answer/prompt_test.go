package answer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
)

func results(texts ...string) []search.FusedResult {
	out := make([]search.FusedResult, len(texts))
	for i, t := range texts {
		out[i] = search.FusedResult{Passage: store.NewPassage(t, fmt.Sprintf("src%d", i))}
	}
	return out
}

func TestPromptBuilder_ContextTemplate(t *testing.T) {
	b := promptBuilder{historyLimit: DefaultHistoryLimit}

	prompt := b.build("why?", results("first", "second"), nil, "")

	assert.Contains(t, prompt, "Reference documents:\nfirst\n\nsecond\n")
	assert.Contains(t, prompt, "Question: why?")
	assert.NotContains(t, prompt, "Conversation so far")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestPromptBuilder_HistoryKeepsLastTurns(t *testing.T) {
	// Given: twelve turns of history
	var history []Turn
	for i := 1; i <= 12; i++ {
		role := "user"
		if i%2 == 0 {
			role = "assistant"
		}
		history = append(history, Turn{Role: role, Content: fmt.Sprintf("turn-%02d", i)})
	}
	b := promptBuilder{historyLimit: DefaultHistoryLimit}

	// When: building a prompt with context
	prompt := b.build("next?", results("ctx"), history, "")

	// Then: only the last ten turns appear, role-labelled
	assert.NotContains(t, prompt, "turn-01")
	assert.NotContains(t, prompt, "turn-02")
	assert.Contains(t, prompt, "User: turn-03")
	assert.Contains(t, prompt, "Assistant: turn-12")
	assert.Contains(t, prompt, "Conversation so far:")
	assert.Less(t, strings.Index(prompt, "turn-12"), strings.Index(prompt, "Reference documents"))
}

func TestPromptBuilder_NoContext(t *testing.T) {
	b := promptBuilder{historyLimit: DefaultHistoryLimit}

	prompt := b.build("hello?", nil, []Turn{{Role: "user", Content: "hi"}}, "")

	assert.NotContains(t, prompt, "Reference documents")
	assert.Contains(t, prompt, "User: hi")
	assert.Contains(t, prompt, "Question: hello?")
}

func TestPromptBuilder_SystemPromptPrepended(t *testing.T) {
	b := promptBuilder{historyLimit: DefaultHistoryLimit}

	prompt := b.build("q", results("ctx"), nil, "  Answer like a pirate.  ")

	assert.True(t, strings.HasPrefix(prompt, "Answer like a pirate.\n\n"))
}

func TestPromptBuilder_ZeroHistoryLimit(t *testing.T) {
	b := promptBuilder{historyLimit: 0}

	prompt := b.build("q", results("ctx"), []Turn{{Role: "user", Content: "secret"}}, "")

	assert.NotContains(t, prompt, "secret")
}

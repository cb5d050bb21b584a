package answer

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/search"
)

// DefaultHistoryLimit is the number of most recent turns included in a prompt.
const DefaultHistoryLimit = 10

const ragInstructions = `Instructions:
- Answer the question in detail using the information in the reference documents above.
- If there is no direct answer, reason from related or similar information in the documents.
- When several documents are relevant, combine them into one comprehensive answer.
- Quote concrete details from the documents (numbers, names, facts) where they help.
- Only say that no relevant information exists when nothing related can be found.
- Split the answer into readable paragraphs, one item per line when listing.`

const ragTemplate = `You are a helpful and knowledgeable assistant. Answer the user's question using the information extracted from the documents below.

Reference documents:
%s

Question: %s

` + ragInstructions + `

Answer:`

const historyTemplate = `You are a helpful and knowledgeable assistant.

Conversation so far:
%s

Reference documents:
%s

Question: %s

` + ragInstructions + `
- Take the conversation into account and keep the dialogue natural.

Answer:`

const simpleTemplate = `You are a helpful and knowledgeable assistant. Answer the following question.
%s
Question: %s

Answer:`

// promptBuilder renders the prompt of one query.
type promptBuilder struct {
	historyLimit int
}

// build renders the context-free prompt when results is empty.
func (b promptBuilder) build(question string, results []search.FusedResult, history []Turn, systemPrompt string) string {
	h := formatHistory(lastTurns(history, b.historyLimit))

	var prompt string
	switch {
	case len(results) == 0:
		var conv string
		if h != "" {
			conv = "\nConversation so far:\n" + h + "\n"
		}
		prompt = fmt.Sprintf(simpleTemplate, conv, question)
	case h != "":
		prompt = fmt.Sprintf(historyTemplate, h, contextBlock(results), question)
	default:
		prompt = fmt.Sprintf(ragTemplate, contextBlock(results), question)
	}

	if s := strings.TrimSpace(systemPrompt); s != "" {
		prompt = s + "\n\n" + prompt
	}
	return prompt
}

// contextBlock joins passage texts in ranked order, separated by a blank line.
func contextBlock(results []search.FusedResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Passage.Text
	}
	return strings.Join(texts, "\n\n")
}

func lastTurns(history []Turn, limit int) []Turn {
	if limit <= 0 {
		return nil
	}
	if len(history) > limit {
		return history[len(history)-limit:]
	}
	return history
}

func formatHistory(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		lines = append(lines, roleLabel(t.Role)+": "+content)
	}
	return strings.Join(lines, "\n")
}

func roleLabel(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "user", "human":
		return "User"
	default:
		return "Assistant"
	}
}

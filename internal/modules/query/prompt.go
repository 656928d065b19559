package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neurobridge/support-backend/internal/domain/support"
)

const defaultPromptType = "support"

const promptRules = `Rules:
- Security: never invent account numbers, order IDs, or other identifiers not present in the context above.
- Identity: don't re-ask the customer for anything already present in "known customer data".
- Escalation: try to help using the knowledge base before suggesting a human agent.`

// composePrompt builds the templated prompt: known customer data, knowledge-
// base context, conversation history, the current question, then rules —
// in that exact order per spec §4.2.
func composePrompt(question string, chunks []support.Chunk, history []HistoryTurn, entities map[string]any, promptType string) string {
	if promptType == "" {
		promptType = defaultPromptType
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Prompt type: %s\n\n", promptType)

	if len(entities) > 0 {
		b.WriteString("Known customer data:\n")
		keys := make([]string, 0, len(entities))
		for k := range entities {
			if k == support.EntityPendingHandover || k == support.EntityHandoverReason {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, entities[k])
		}
		b.WriteString("\n")
	}

	if len(chunks) > 0 {
		b.WriteString("Knowledge-base context:\n")
		texts := make([]string, 0, len(chunks))
		for _, c := range chunks {
			texts = append(texts, c.Text)
		}
		b.WriteString(strings.Join(texts, "\n\n---\n\n"))
		b.WriteString("\n\n")
	}

	if len(history) > 0 {
		b.WriteString("Conversation history:\n")
		start := 0
		if len(history) > 10 {
			start = len(history) - 10
		}
		for _, turn := range history[start:] {
			label := "Customer"
			if turn.Role == "agent" {
				label = "Agent"
			}
			fmt.Fprintf(&b, "%s: %s\n", label, turn.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Current question: %s\n\n", question)
	b.WriteString(promptRules)
	return b.String()
}

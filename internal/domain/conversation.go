package domain

import "strings"

// Message roles for generative model calls
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a generative model prompt
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryPart is a fragment of one wire-format conversation turn
type HistoryPart struct {
	Text string `json:"text"`
}

// HistoryMessage is the wire shape the client sends for prior turns:
// {role: "user"|"model", parts: [{text}]}. The server stores no history;
// the caller is the source of truth.
type HistoryMessage struct {
	Role  string        `json:"role"`
	Parts []HistoryPart `json:"parts"`
}

// ConversationTurn is the flat internal shape of one prior turn
type ConversationTurn struct {
	Role    string
	Content string
}

// FlattenHistory maps wire-format history into flat conversation turns.
// The external "model" role becomes "assistant"; turns with no text are
// dropped. Order is preserved.
func FlattenHistory(history []HistoryMessage) []ConversationTurn {
	turns := make([]ConversationTurn, 0, len(history))
	for _, msg := range history {
		var sb strings.Builder
		for _, part := range msg.Parts {
			sb.WriteString(part.Text)
		}
		content := strings.TrimSpace(sb.String())
		if content == "" {
			continue
		}

		role := RoleUser
		if msg.Role == "model" || msg.Role == RoleAssistant {
			role = RoleAssistant
		}

		turns = append(turns, ConversationTurn{Role: role, Content: content})
	}
	return turns
}

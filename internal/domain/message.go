// Package domain defines the core domain models for the gateway.
package domain

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn. Messages are immutable once stored;
// ordering within a session is insertion order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Ts      int64  `json:"ts"` // unix milliseconds
}

// NewMessage builds a message stamped with the current wall clock.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Ts: time.Now().UnixMilli()}
}

// LastUserContent returns the content of the most recent user-authored message,
// or the empty string if the conversation has none.
func LastUserContent(conversation []Message) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == RoleUser {
			return conversation[i].Content
		}
	}
	return ""
}

package llm

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a role the provider accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // The message content
}

// NewMessage builds a message, rejecting unknown roles.
func NewMessage(role Role, content string) (Message, error) {
	if !role.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return Message{Role: role, Content: content}, nil
}

// UserMessage is shorthand for a user-authored message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage is shorthand for an assistant-authored message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// DisplayPair is one rendered transcript row: a user message and the
// assistant reply that followed it.
type DisplayPair struct {
	User      string
	Assistant string
}

// MarshalJSON encodes the pair as a two element array, the shape chat widgets consume.
func (p DisplayPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.User, p.Assistant})
}

// UnmarshalJSON decodes the two element array form.
func (p *DisplayPair) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("display pair must have 2 elements, got %d", len(raw))
	}
	p.User, p.Assistant = raw[0], raw[1]
	return nil
}

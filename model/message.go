package model

import "time"

// Message is a single entry in the ordered list sent to a model provider.
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// MessageKind classifies a ChatMessage shown in the transcript.
type MessageKind string

const (
	KindUser      MessageKind = "user"
	KindAssistant MessageKind = "assistant"
	KindError     MessageKind = "error"
	KindToolCall  MessageKind = "tool_call"
)

// ChatMessage is a UI-visible transcript entry. It is persisted keyed by ID
// and the same ID may be upserted several times while content accumulates.
type ChatMessage struct {
	ID        string      `json:"id"`
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text"`
	Command   string      `json:"command,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ConversationTurn is the model-facing memory unit kept in the bounded window.
type ConversationTurn struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ToolName string `json:"tool_name,omitempty"`
}

// Command describes a slash command.
type Command struct {
	Name        string
	Description string
	Action      string
}

package models

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	// RoleSystem marks instructions that frame the whole conversation.
	RoleSystem MessageRole = "system"
	// RoleUser marks input from the caller or a prior stage.
	RoleUser MessageRole = "user"
	// RoleAssistant marks model output.
	RoleAssistant MessageRole = "assistant"
	// RoleTool marks results returned from tool calls.
	RoleTool MessageRole = "tool"
)

// Message is one entry in a model conversation history.
type Message struct {
	// Role is who authored the message.
	Role MessageRole `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

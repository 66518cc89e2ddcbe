package ai

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assistant produces conversational reply text. It is the chat collaborator
// for chat-with-search and the voice of the built-in organization agents.
type Assistant interface {
	Ask(ctx context.Context, prompt string, history []ChatMessage) (string, error)
}

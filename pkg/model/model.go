package model

import "context"

// Model describes the behavior every language-model backend must support.
// Generate is a unary request/response call over the accumulated dialogue;
// implementations carry no state of their own beyond transport configuration,
// so the same Model value can serve many concurrent sessions.
type Model interface {
	Generate(ctx context.Context, messages []Message) (Message, error)
}

// Message is one entry in a dialogue transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles understood by every adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

package conversation

import "context"

// Role is the speaker of a prompt turn.
type Role string

const (
	ChatRoleSystem    Role = "system"
	ChatRoleUser      Role = "user"
	ChatRoleAssistant Role = "assistant"
)

// ChatMessage is one prompt turn. Providers with a separate system prompt
// drop system turns from the message list.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TokenUsage is what the provider counted for one completion.
type TokenUsage struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
	TotalTokens  int32 `json:"total_tokens"`
}

// LLMRequest is provider neutral; each client is bound to its own model id.
// The last message is the turn being answered.
type LLMRequest struct {
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// LLMResponse is a completed reply and the provider that wrote it.
type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
	Provider   string
}

// LLMClient answers one assembled NovaTech prompt.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

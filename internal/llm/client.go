package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation handed to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage carries token accounting when the provider reports it.
type Usage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is a provider-neutral completion request. System holds the
// instruction blocks that precede the message history.
type Request struct {
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
}

// Response is the provider's reply for a single turn.
type Response struct {
	Text       string
	Usage      Usage
	StopReason string
}

// Client completes a chat turn. Implementations must honor ctx cancellation
// and return an error rather than an empty reply on provider failure.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the part of the chat API the embedded agent needs.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey  string
	BaseURL string // empty means the public OpenAI endpoint
}

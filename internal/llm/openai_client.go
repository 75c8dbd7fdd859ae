package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	maxAttempts = 5
	backoffBase = 3 * time.Second
)

type OpenAIClient struct {
	client  *openai.Client
	log     zerolog.Logger
	backoff time.Duration
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from cfg, taking the key from
// OPENAI_API_KEY when cfg carries none.
func NewOpenAIClient(cfg Config, log zerolog.Logger) (*OpenAIClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	oc := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(oc),
		log:     log,
		backoff: backoffBase,
	}, nil
}

// CreateChatCompletion retries rate-limited requests with exponential
// backoff, 3s doubling, up to five attempts.
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse
	var err error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err = c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !rateLimited(err) || attempt == maxAttempts-1 {
			break
		}

		wait := c.backoff * time.Duration(1<<attempt)
		c.log.Warn().Int("attempt", attempt+1).Dur("wait", wait).Msg("rate limited, backing off")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return resp, ctx.Err()
		}
	}
	return resp, fmt.Errorf("openai chat completion: %w", err)
}

func rateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "429")
}

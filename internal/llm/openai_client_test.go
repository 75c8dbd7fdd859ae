package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

const completionBody = `{
	"id": "c1",
	"object": "chat.completion",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 7, "completion_tokens": 2, "total_tokens": 9}
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1/"}, zerolog.Nop())
	require.NoError(t, err)
	c.backoff = time.Millisecond
	return c
}

func TestNewOpenAIClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAIClient(Config{}, zerolog.Nop())

	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestNewOpenAIClient_EnvKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	c, err := NewOpenAIClient(Config{}, zerolog.Nop())

	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCreateChatCompletion_SendsRequest(t *testing.T) {
	var got openai.ChatCompletionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	resp, err := c.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hi"}},
		Tools:    FunctionTools(tools.ServerName, tools.Specs()[:1]),
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Choices[0].Message.Content)
	assert.Equal(t, 7, resp.Usage.PromptTokens)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "mcp__playwright__browser_navigate", got.Tools[0].Function.Name)
}

func TestCreateChatCompletion_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests"}}`))
			return
		}
		_, _ = w.Write([]byte(completionBody))
	})

	resp, err := c.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{Model: "gpt-4o"})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "ok", resp.Choices[0].Message.Content)
}

func TestCreateChatCompletion_GivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests"}}`))
	})

	_, err := c.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{Model: "gpt-4o"})

	assert.Error(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestCreateChatCompletion_NoRetryOnOtherErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	})

	_, err := c.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{Model: "gpt-4o"})

	assert.ErrorContains(t, err, "bad key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFunctionTools(t *testing.T) {
	specs := tools.Specs()

	got := FunctionTools(tools.ServerName, specs)

	require.Len(t, got, len(specs))
	names := make([]string, len(got))
	for i, tl := range got {
		assert.Equal(t, openai.ToolTypeFunction, tl.Type)
		names[i] = tl.Function.Name
	}
	assert.Equal(t, tools.Browser().Names(), names)
}

// Package agent is an in-process agent runtime: an OpenAI tool-calling loop
// that drives the browser tool servers directly.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/nbenliogludev/go-recipe-agent/internal/llm"
	"github.com/nbenliogludev/go-recipe-agent/internal/options"
	"github.com/nbenliogludev/go-recipe-agent/internal/runtime"
	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

const (
	DefaultModel = openai.GPT4o

	// identical consecutive calls allowed before the loop guard refuses
	maxRepeats = 2
)

type Runtime struct {
	llm   llm.Client
	tools tools.Server
	start StartFunc
	model string
	log   zerolog.Logger
}

var _ runtime.Runtime = (*Runtime)(nil)

type Option func(*Runtime)

// WithToolServer sets the server used when the options name no MCP servers.
func WithToolServer(s tools.Server) Option {
	return func(r *Runtime) { r.tools = s }
}

// WithStarter replaces how MCP servers from the options are started.
func WithStarter(f StartFunc) Option {
	return func(r *Runtime) { r.start = f }
}

// WithModel overrides the chat model. The model named in the options is a
// Claude identifier and is not sent to OpenAI.
func WithModel(m string) Option {
	return func(r *Runtime) { r.model = m }
}

func New(c llm.Client, log zerolog.Logger, opts ...Option) *Runtime {
	r := &Runtime{
		llm:   c,
		model: DefaultModel,
		log:   log,
	}
	for _, o := range opts {
		o(r)
	}
	if r.start == nil {
		r.start = mcpStarter(log)
	}
	return r
}

func (r *Runtime) Query(ctx context.Context, prompt string, opts options.AgentOptions) runtime.Stream {
	return func(yield func(runtime.Message, error) bool) {
		servers, closeAll, err := r.toolServers(ctx, opts)
		if err != nil {
			yield(nil, err)
			return
		}
		defer closeAll()

		r.run(ctx, prompt, opts, servers, yield)
	}
}

type usageTotals struct {
	in, out int
}

func (u *usageTotals) add(x openai.Usage) {
	u.in += x.PromptTokens
	u.out += x.CompletionTokens
}

func (u usageTotals) usage() *runtime.Usage {
	v := runtime.NewUsage(u.in, u.out)
	return &v
}

func (r *Runtime) run(ctx context.Context, prompt string, opts options.AgentOptions, servers map[string]tools.Server, yield func(runtime.Message, error) bool) {
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = options.MaxTurns
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: opts.SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	declared := declare(opts.AllowedTools)
	mem := NewStepMemory(20, maxRepeats)
	var totals usageTotals

	for turn := 1; turn <= maxTurns; turn++ {
		resp, err := r.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    r.model,
			Messages: messages,
			Tools:    declared,
		})
		if err != nil {
			yield(nil, err)
			return
		}
		totals.add(resp.Usage)
		if len(resp.Choices) == 0 {
			yield(nil, ErrNoChoices)
			return
		}

		msg := resp.Choices[0].Message
		messages = append(messages, msg)

		if blocks := contentBlocks(msg); len(blocks) > 0 {
			if !yield(runtime.AssistantMessage{Content: blocks}, nil) {
				return
			}
		}

		if len(msg.ToolCalls) == 0 {
			text := msg.Content
			yield(runtime.ResultMessage{
				Subtype:  "success",
				Result:   &text,
				Usage:    totals.usage(),
				NumTurns: turn,
			}, nil)
			return
		}

		var images []openai.ChatMessagePart
		for _, call := range msg.ToolCalls {
			res, err := r.execute(ctx, turn, call, opts.AllowedTools, servers, mem)
			if err != nil {
				yield(nil, err)
				return
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    toolContent(res),
			})
			if res.ImageBase64 != "" {
				images = append(images, imagePart(res))
			}
		}
		if len(images) > 0 {
			parts := append([]openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: "Screenshot from the previous tool call."},
			}, images...)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			})
		}
	}

	r.log.Debug().Strs("history", mem.HistoryLines()).Msg("turn limit reached")
	yield(runtime.ResultMessage{
		Subtype:  "error_max_turns",
		Usage:    totals.usage(),
		NumTurns: maxTurns,
		IsError:  true,
	}, nil)
}

// declare lists the allowed tools the catalog knows how to describe.
func declare(allowed []string) []openai.Tool {
	var out []openai.Tool
	for _, spec := range tools.Specs() {
		for _, name := range allowed {
			server, op, ok := tools.Split(name)
			if ok && op == spec.Op {
				out = append(out, llm.FunctionTools(server, []tools.Spec{spec})...)
			}
		}
	}
	return out
}

func contentBlocks(msg openai.ChatCompletionMessage) []runtime.ContentBlock {
	var blocks []runtime.ContentBlock
	if msg.Content != "" {
		blocks = append(blocks, runtime.TextBlock{Text: msg.Content})
	}
	for _, call := range msg.ToolCalls {
		blocks = append(blocks, runtime.ToolUseBlock{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: rawArgs(call.Function.Arguments),
		})
	}
	return blocks
}

func rawArgs(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(s)
}

func toolContent(res tools.Result) string {
	text := res.Text
	if text == "" && res.ImageBase64 != "" {
		text = "Screenshot captured."
	}
	if text == "" {
		text = "OK"
	}
	if res.IsError {
		return "ERROR: " + text
	}
	return text
}

func imagePart(res tools.Result) openai.ChatMessagePart {
	mime := res.ImageMIME
	if mime == "" {
		mime = "image/png"
	}
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL: fmt.Sprintf("data:%s;base64,%s", mime, res.ImageBase64),
		},
	}
}

func permitted(allowed []string, name string) bool {
	return slices.Contains(allowed, name)
}

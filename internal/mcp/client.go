// Package mcp adapts an MCP client session to tools.Server, enough to drive
// the Playwright MCP server's tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/options"
	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

const (
	protocolVersion = "2024-11-05"
	callTimeout     = 30 * time.Second
)

var (
	ErrClosed  = errors.New("mcp connection closed")
	ErrTimeout = errors.New("mcp request timeout")
)

// Client is one initialized MCP session. It implements tools.Server.
type Client struct {
	name string
	mc   *client.Client
	log  zerolog.Logger

	mu      sync.Mutex
	closed  bool
	info    mcp.Implementation
	timeout time.Duration
}

var _ tools.Server = (*Client)(nil)

// Start launches cfg as a stdio child process and performs the initialize
// handshake. env is the child environment; nil inherits ours.
func Start(ctx context.Context, name string, cfg launch.Config, env map[string]string, log zerolog.Logger) (*Client, error) {
	var envList []string
	if len(env) > 0 {
		envList = options.EnvList(env)
	}
	mc, err := client.NewStdioMCPClient(cfg.Command, envList, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("start mcp server %s: %w", name, err)
	}

	c := NewClient(name, mc, log)
	if err := c.Initialize(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewClient wraps a started mcp-go client. Call Initialize before use.
func NewClient(name string, mc *client.Client, log zerolog.Logger) *Client {
	return &Client{
		name:    name,
		mc:      mc,
		log:     log.With().Str("mcp_server", name).Logger(),
		timeout: callTimeout,
	}
}

// Initialize performs the protocol handshake.
func (c *Client) Initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = protocolVersion
	req.Params.ClientInfo = mcp.Implementation{
		Name:    "recipe-agent",
		Version: "0.1.0",
	}

	res, err := withTimeout(ctx, c, "initialize", func(ctx context.Context) (*mcp.InitializeResult, error) {
		return c.mc.Initialize(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("mcp initialize %s: %w", c.name, err)
	}

	c.mu.Lock()
	c.info = res.ServerInfo
	c.mu.Unlock()
	c.log.Debug().Str("server", res.ServerInfo.Name).Str("protocol", res.ProtocolVersion).Msg("mcp session ready")
	return nil
}

// withTimeout runs fn under the per-call timeout and turns an expired
// timeout into ErrTimeout. Cancellation of ctx itself is returned as is.
func withTimeout[T any](ctx context.Context, c *Client, method string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return zero, ErrClosed
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := fn(callCtx)
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return zero, fmt.Errorf("%w: %s", ErrTimeout, method)
	}
	return zero, err
}

// Call invokes tool op via tools/call.
func (c *Client) Call(ctx context.Context, op string, args json.RawMessage) (tools.Result, error) {
	arguments := map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return tools.ErrorResult(fmt.Sprintf("invalid arguments for %s: %v", op, err)), nil
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = op
	req.Params.Arguments = arguments

	res, err := withTimeout(ctx, c, "tools/call", func(ctx context.Context) (*mcp.CallToolResult, error) {
		return c.mc.CallTool(ctx, req)
	})
	if err != nil {
		return tools.Result{}, err
	}
	return toResult(res), nil
}

func toResult(res *mcp.CallToolResult) tools.Result {
	var texts []string
	out := tools.Result{IsError: res.IsError}
	for _, part := range res.Content {
		if tc, ok := mcp.AsTextContent(part); ok {
			texts = append(texts, tc.Text)
			continue
		}
		if ic, ok := mcp.AsImageContent(part); ok && out.ImageBase64 == "" {
			out.ImageBase64 = ic.Data
			out.ImageMIME = ic.MIMEType
		}
	}
	out.Text = strings.Join(texts, "\n")
	return out
}

// Close ends the session. For a stdio server this closes its stdin and
// waits for the process to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.mc.Close()
}

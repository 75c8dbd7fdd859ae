// Package options assembles the configuration record handed to an agent runtime.
package options

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/prompt"
	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

// MaxTurns bounds reasoning/tool-use turns per request.
const MaxTurns = 50

// DefaultModel is the model identifier used when none is configured.
const DefaultModel = "claude-sonnet-4-5"

var ErrUnknownMode = errors.New("unknown mode")

// Mode selects who starts the browser tool server.
type Mode string

const (
	// Standalone: the agent runtime launches the MCP server itself.
	Standalone Mode = "standalone"
	// Embedded: the caller already provides tool connectivity.
	Embedded Mode = "embedded"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Standalone, Embedded:
		return m, nil
	case "":
		return Standalone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// AgentOptions is the configuration record one runtime invocation runs under.
type AgentOptions struct {
	Env          map[string]string        `json:"env,omitempty"`
	SystemPrompt string                   `json:"system_prompt"`
	Model        string                   `json:"model"`
	AllowedTools []string                 `json:"allowed_tools"`
	MaxTurns     int                      `json:"max_turns"`
	MCPServers   map[string]launch.Config `json:"mcp_servers,omitempty"`
}

// Inputs are the parts the assembler merges.
type Inputs struct {
	Env       map[string]string
	Procedure prompt.Procedure
	Model     string
	Exec      launch.ExecContext
}

// Assemble builds the options for mode. The environment snapshot is copied
// as is; nothing else is validated.
func Assemble(mode Mode, in Inputs) AgentOptions {
	model := in.Model
	if model == "" {
		model = DefaultModel
	}
	opts := AgentOptions{
		Env:          maps.Clone(in.Env),
		SystemPrompt: in.Procedure.Text,
		Model:        model,
		AllowedTools: tools.Browser().Names(),
		MaxTurns:     MaxTurns,
	}
	if mode == Standalone {
		opts.MCPServers = map[string]launch.Config{
			tools.ServerName: launch.Build(in.Exec),
		}
	}
	return opts
}

// EnvSnapshot returns the current process environment as a map.
func EnvSnapshot() map[string]string {
	return ParseEnv(os.Environ())
}

// ParseEnv turns KEY=VALUE pairs into a map; later keys win.
func ParseEnv(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// EnvList renders env as sorted KEY=VALUE pairs.
func EnvList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

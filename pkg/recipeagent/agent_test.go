package recipeagent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	goruntime "runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-recipe-agent/internal/config"
	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/options"
	"github.com/nbenliogludev/go-recipe-agent/internal/relay"
	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

const recipeStream = `{"type":"system","subtype":"init","session_id":"s1"}
{"type":"assistant","message":{"content":[{"type":"text","text":"Searching allrecipes"},{"type":"tool_use","id":"t1","name":"mcp__playwright__browser_navigate","input":{"url":"https://www.allrecipes.com"}}]}}
{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1"}]}}
{"type":"assistant","message":{"content":[{"type":"text","text":"Found them"}]}}
{"type":"result","subtype":"success","result":"Found 3 recipes","usage":{"input_tokens":10,"output_tokens":5}}
`

func fakeClaude(t *testing.T, stream string) string {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	data := filepath.Join(dir, "stream.jsonl")
	require.NoError(t, os.WriteFile(data, []byte(stream), 0o644))
	path := filepath.Join(dir, "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\ncat '"+data+"'\n"), 0o755))
	return path
}

func TestAgent_StreamThroughClaudeCLI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Claude.Path = fakeClaude(t, recipeStream)

	a, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	var got []Event
	for ev, err := range a.Stream(context.Background(), "quick vegan chili") {
		require.NoError(t, err)
		got = append(got, ev)
	}

	assert.Equal(t, []Event{
		relay.Text("Searching allrecipes"),
		relay.Tool("mcp__playwright__browser_navigate"),
		relay.Text("Found them"),
		relay.Usage(10, 5),
		relay.Result("Found 3 recipes"),
		relay.Done(),
	}, got)
}

func TestAgent_ClaudeFailureSurfaces(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Claude.Path = filepath.Join(t.TempDir(), "missing-claude")

	a, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	var events []Event
	var streamErr error
	for ev, err := range a.Stream(context.Background(), "p") {
		if err != nil {
			streamErr = err
			break
		}
		events = append(events, ev)
	}

	assert.Error(t, streamErr)
	assert.Empty(t, events)
}

func TestOptions(t *testing.T) {
	t.Setenv(launch.EnvExecutablePath, "/usr/bin/chromium")
	cfg := config.DefaultConfig()

	opts, err := Options(cfg)

	require.NoError(t, err)
	assert.Equal(t, options.MaxTurns, opts.MaxTurns)
	assert.Equal(t, tools.Browser().Names(), opts.AllowedTools)
	assert.Contains(t, opts.SystemPrompt, "allrecipes.com")
	require.Contains(t, opts.MCPServers, tools.ServerName)
	assert.Contains(t, opts.MCPServers[tools.ServerName].Args, "--executable-path=/usr/bin/chromium")
	assert.Equal(t, "/usr/bin/chromium", opts.Env[launch.EnvExecutablePath])

	cfg.Mode = "embedded"
	opts, err = Options(cfg)
	require.NoError(t, err)
	assert.Nil(t, opts.MCPServers)
}

func TestOptions_PromptOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proc.md")
	require.NoError(t, os.WriteFile(path, []byte("---\nversion: 1\nsite: https://www.allrecipes.com\nsections: [Goal]\n---\n## Goal\nFind one recipe.\n"), 0o644))
	cfg := config.DefaultConfig()
	cfg.Prompt.Path = path

	opts, err := Options(cfg)

	require.NoError(t, err)
	assert.Contains(t, opts.SystemPrompt, "Find one recipe.")
}

func TestNew_Rejects(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := config.DefaultConfig()
	cfg.Runtime = "gemini"
	_, err := New(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, config.ErrUnknownRuntime)

	cfg = config.DefaultConfig()
	cfg.Mode = "hybrid"
	_, err = New(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, options.ErrUnknownMode)

	cfg = config.DefaultConfig()
	cfg.Runtime = config.RuntimeOpenAI
	_, err = New(cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(relay.Usage(10, 5))

	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"usage","input_tokens":10,"output_tokens":5}`, string(data))
}

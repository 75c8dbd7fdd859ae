package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/options"
	"github.com/nbenliogludev/go-recipe-agent/internal/relay"
	"github.com/nbenliogludev/go-recipe-agent/internal/runtime/claudecli"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		out, err := execute(t, "", "--version")

		require.NoError(t, err)
		assert.Contains(t, out, "recipe-agent version "+GetVersion())
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := NewRootCmd()

		configFlag := cmd.PersistentFlags().Lookup("config")
		require.NotNil(t, configFlag)
		assert.Equal(t, "", configFlag.DefValue)

		logLevelFlag := cmd.PersistentFlags().Lookup("log-level")
		require.NotNil(t, logLevelFlag)
		assert.Equal(t, "info", logLevelFlag.DefValue)
	})

	t.Run("bad config", func(t *testing.T) {
		t.Setenv("RECIPE_AGENT_RUNTIME", "gemini")

		_, err := execute(t, "", "launch-args")

		assert.ErrorContains(t, err, "unknown runtime")
	})
}

func TestLaunchArgsCmd(t *testing.T) {
	t.Setenv(launch.EnvExecutablePath, "")

	out, err := execute(t, "", "launch-args")

	require.NoError(t, err)
	assert.Equal(t, "npx @playwright/mcp@latest --headless --isolated --browser=chromium --viewport-size=1280,720\n", out)
}

func TestLaunchArgsCmd_JSONContainer(t *testing.T) {
	t.Setenv(launch.EnvExecutablePath, "/usr/bin/chromium")

	out, err := execute(t, "", "launch-args", "--json")

	require.NoError(t, err)
	var cfg launch.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, launch.Build(launch.ExecContext{ExecutablePath: "/usr/bin/chromium"}), cfg)
}

func TestOptionsCmd(t *testing.T) {
	t.Run("standalone", func(t *testing.T) {
		out, err := execute(t, "", "options")

		require.NoError(t, err)
		var opts options.AgentOptions
		require.NoError(t, json.Unmarshal([]byte(out), &opts))
		assert.Nil(t, opts.Env)
		assert.Equal(t, options.MaxTurns, opts.MaxTurns)
		assert.Contains(t, opts.MCPServers, "playwright")
	})

	t.Run("embedded with env", func(t *testing.T) {
		t.Setenv("RECIPE_MARKER", "1")

		out, err := execute(t, "", "options", "--mode", "embedded", "--with-env")

		require.NoError(t, err)
		var opts options.AgentOptions
		require.NoError(t, json.Unmarshal([]byte(out), &opts))
		assert.Nil(t, opts.MCPServers)
		assert.Equal(t, "1", opts.Env["RECIPE_MARKER"])
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := execute(t, "", "options", "--mode", "hybrid")

		assert.ErrorIs(t, err, options.ErrUnknownMode)
	})
}

func TestRunCmd_ClaudeJSON(t *testing.T) {
	if goruntime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	claude := filepath.Join(dir, "claude")
	script := `#!/bin/sh
echo '{"type":"assistant","message":{"content":[{"type":"text","text":"On it"}]}}'
echo '{"type":"result","subtype":"success","result":"Found 3 recipes","usage":{"input_tokens":10,"output_tokens":5}}'
`
	require.NoError(t, os.WriteFile(claude, []byte(script), 0o755))
	t.Setenv("RECIPE_AGENT_CLAUDE_PATH", claude)

	out, err := execute(t, "vegan chili\n", "run", "--json")

	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`{"type":"text","content":"On it"}`,
		`{"type":"usage","input_tokens":10,"output_tokens":5}`,
		`{"type":"result","content":"Found 3 recipes"}`,
		`{"type":"done"}`,
	}, "\n")+"\n", out)
}

func TestRunCmd_EmptyPrompt(t *testing.T) {
	_, err := execute(t, "  \n", "run")

	assert.ErrorContains(t, err, "empty prompt")
}

type fakeSource struct {
	events []relay.Event
	err    error
}

func (f fakeSource) Stream(context.Context, string) iter.Seq2[relay.Event, error] {
	return func(yield func(relay.Event, error) bool) {
		for _, ev := range f.events {
			if !yield(ev, nil) {
				return
			}
		}
		if f.err != nil {
			yield(relay.Event{}, f.err)
		}
	}
}

func fixedReporter(w *bytes.Buffer) *reporter {
	r := newReporter(w, "vegan chili")
	r.now = func() time.Time { return r.start.Add(1500 * time.Millisecond) }
	return r
}

func TestReporter_Finished(t *testing.T) {
	var buf bytes.Buffer
	src := fakeSource{events: []relay.Event{
		relay.Text("Opening allrecipes"),
		relay.Tool("mcp__playwright__browser_navigate"),
		relay.Usage(10, 5),
		relay.Result("Found 3 recipes"),
		relay.Done(),
	}}

	err := stream(context.Background(), src, "vegan chili", fixedReporter(&buf))

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "🤖 Opening allrecipes\n")
	assert.Contains(t, out, "⚡ TOOL: mcp__playwright__browser_navigate\n")
	assert.Contains(t, out, "Duration: 1.5s\n")
	assert.Contains(t, out, "Exit reason: model finished the task\n")
	assert.Contains(t, out, "Tokens: 10 in / 5 out\n")
	assert.Contains(t, out, "STEP 1 | TOOL=mcp__playwright__browser_navigate\n")
	assert.Contains(t, out, "--- RESULT ---\nFound 3 recipes\n")
}

func TestReporter_ExitReasons(t *testing.T) {
	tests := []struct {
		name string
		src  fakeSource
		want string
	}{
		{"turn limit", fakeSource{events: []relay.Event{relay.Usage(1, 1), relay.Done()}}, "turn limit reached without an answer"},
		{"runtime error", fakeSource{err: errors.New("claude exited")}, "runtime error: claude exited"},
		{"interrupted", fakeSource{err: context.Canceled}, "interrupted by user"},
		{"claude killed on interrupt", fakeSource{err: fmt.Errorf("%w: %w", claudecli.ErrExit, context.Canceled)}, "interrupted by user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			_ = stream(context.Background(), tt.src, "p", fixedReporter(&buf))

			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

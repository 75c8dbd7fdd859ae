package claudecli

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/options"
	"github.com/nbenliogludev/go-recipe-agent/internal/prompt"
)

func flagValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	i := slices.Index(args, flag)
	require.GreaterOrEqual(t, i, 0, "flag %s missing", flag)
	require.Less(t, i+1, len(args))
	return args[i+1]
}

func assembled(t *testing.T, mode options.Mode) options.AgentOptions {
	t.Helper()
	proc, err := prompt.Default()
	require.NoError(t, err)
	return options.Assemble(mode, options.Inputs{Procedure: proc, Model: "claude-sonnet-4-5"})
}

func TestBuildArgs_Standalone(t *testing.T) {
	opts := assembled(t, options.Standalone)

	args, err := BuildArgs("find lasagna", opts, "/ignored.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"--print", "--output-format", "stream-json", "--verbose"}, args[:4])
	assert.Equal(t, "claude-sonnet-4-5", flagValue(t, args, "--model"))
	assert.Equal(t, "50", flagValue(t, args, "--max-turns"))
	assert.Equal(t, opts.SystemPrompt, flagValue(t, args, "--system-prompt"))
	assert.Contains(t, flagValue(t, args, "--allowedTools"), "mcp__playwright__browser_navigate,mcp__playwright__browser_click,")
	assert.Contains(t, args, "--strict-mcp-config")

	var cfg mcpConfig
	require.NoError(t, json.Unmarshal([]byte(flagValue(t, args, "--mcp-config")), &cfg))
	assert.Equal(t, map[string]launch.Config{"playwright": launch.Build(launch.ExecContext{})}, cfg.MCPServers)

	assert.Equal(t, []string{"--", "find lasagna"}, args[len(args)-2:])
}

func TestBuildArgs_Embedded(t *testing.T) {
	opts := assembled(t, options.Embedded)

	args, err := BuildArgs("p", opts, "")
	require.NoError(t, err)
	assert.NotContains(t, args, "--mcp-config")

	args, err = BuildArgs("p", opts, "/etc/recipe-agent/mcp.json")
	require.NoError(t, err)
	assert.Equal(t, "/etc/recipe-agent/mcp.json", flagValue(t, args, "--mcp-config"))
	assert.NotContains(t, args, "--strict-mcp-config")
}

func TestBuildArgs_PromptLooksLikeFlag(t *testing.T) {
	args, err := BuildArgs("--help", options.AgentOptions{}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"--print", "--output-format", "stream-json", "--verbose", "--", "--help"}, args)
}

func TestMCPConfig(t *testing.T) {
	s, err := MCPConfig(map[string]launch.Config{"playwright": {Command: "npx", Args: []string{"@playwright/mcp@latest"}}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"mcpServers":{"playwright":{"command":"npx","args":["@playwright/mcp@latest"]}}}`, s)
}

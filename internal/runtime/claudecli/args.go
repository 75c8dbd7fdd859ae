package claudecli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/options"
)

type mcpConfig struct {
	MCPServers map[string]launch.Config `json:"mcpServers"`
}

// MCPConfig renders a tool-server map in the format --mcp-config accepts.
func MCPConfig(servers map[string]launch.Config) (string, error) {
	b, err := json.Marshal(mcpConfig{MCPServers: servers})
	if err != nil {
		return "", fmt.Errorf("marshal mcp config: %w", err)
	}
	return string(b), nil
}

// BuildArgs maps opts onto claude CLI flags. mcpConfigPath is used only
// when opts carries no tool-server map, i.e. in embedded mode.
func BuildArgs(prompt string, opts options.AgentOptions, mcpConfigPath string) ([]string, error) {
	args := []string{"--print", "--output-format", "stream-json", "--verbose"}

	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(opts.MaxTurns))
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", opts.SystemPrompt)
	}
	if len(opts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(opts.AllowedTools, ","))
	}

	switch {
	case len(opts.MCPServers) > 0:
		cfg, err := MCPConfig(opts.MCPServers)
		if err != nil {
			return nil, err
		}
		args = append(args, "--mcp-config", cfg, "--strict-mcp-config")
	case mcpConfigPath != "":
		args = append(args, "--mcp-config", mcpConfigPath)
	}

	return append(args, "--", prompt), nil
}

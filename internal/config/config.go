// Package config loads the recipe agent configuration.
package config

import (
	"errors"
	"fmt"

	"github.com/nbenliogludev/go-recipe-agent/internal/options"
)

var (
	ErrUnknownRuntime = errors.New("unknown runtime")
	ErrUnknownBackend = errors.New("unknown browser backend")
)

const (
	RuntimeClaudeCLI = "claude-cli"
	RuntimeOpenAI    = "openai"

	BackendPlaywright = "playwright"
	BackendChromedp   = "chromedp"
)

type Config struct {
	// Runtime selects the agent runtime: claude-cli or openai.
	Runtime string        `mapstructure:"runtime"`
	Mode    string        `mapstructure:"mode"`
	Model   string        `mapstructure:"model"`
	Claude  ClaudeConfig  `mapstructure:"claude"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Browser BrowserConfig `mapstructure:"browser"`
	Prompt  PromptConfig  `mapstructure:"prompt"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ClaudeConfig struct {
	Path string `mapstructure:"path"`
	// MCPConfig is an MCP config file handed to the CLI in embedded mode.
	MCPConfig string `mapstructure:"mcp_config"`
}

type OpenAIConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type BrowserConfig struct {
	// Backend drives the in-process browser in embedded mode.
	Backend string `mapstructure:"backend"`
	CDPURL  string `mapstructure:"cdp_url"`
}

type PromptConfig struct {
	// Path overrides the built-in operating procedure.
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeClaudeCLI,
		Mode:    string(options.Standalone),
		Model:   options.DefaultModel,
		Claude: ClaudeConfig{
			Path: "claude",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Browser: BrowserConfig{
			Backend: BackendPlaywright,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	switch c.Runtime {
	case RuntimeClaudeCLI, RuntimeOpenAI:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRuntime, c.Runtime)
	}
	if _, err := options.ParseMode(c.Mode); err != nil {
		return err
	}
	switch c.Browser.Backend {
	case BackendPlaywright, BackendChromedp:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Browser.Backend)
	}
	return nil
}

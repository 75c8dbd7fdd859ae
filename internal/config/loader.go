package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "RECIPE_AGENT"

// Loader handles configuration loading
type Loader struct {
	configPath string
}

func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// GetConfigPath returns the config file path, ~/.recipe-agent/config.yaml
// unless one was given.
func (l *Loader) GetConfigPath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".recipe-agent", "config.yaml"), nil
}

// Load reads the config file if present and applies RECIPE_AGENT_*
// environment overrides on top of the defaults.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.GetConfigPath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.Runtime = strings.ToLower(strings.TrimSpace(cfg.Runtime))
	cfg.Browser.Backend = strings.ToLower(strings.TrimSpace(cfg.Browser.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that env overrides apply even when no
// file mentions them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("runtime", cfg.Runtime)
	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("model", cfg.Model)
	v.SetDefault("claude.path", cfg.Claude.Path)
	v.SetDefault("claude.mcp_config", cfg.Claude.MCPConfig)
	v.SetDefault("openai.model", cfg.OpenAI.Model)
	v.SetDefault("openai.base_url", cfg.OpenAI.BaseURL)
	v.SetDefault("openai.api_key", cfg.OpenAI.APIKey)
	v.SetDefault("browser.backend", cfg.Browser.Backend)
	v.SetDefault("browser.cdp_url", cfg.Browser.CDPURL)
	v.SetDefault("prompt.path", cfg.Prompt.Path)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
}

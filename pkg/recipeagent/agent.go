// Package recipeagent is the library surface of the recipe browser agent:
// build an Agent from configuration, then stream events for a prompt.
package recipeagent

import (
	"context"
	"fmt"
	"iter"
	"os"

	"github.com/rs/zerolog"

	"github.com/nbenliogludev/go-recipe-agent/internal/agent"
	"github.com/nbenliogludev/go-recipe-agent/internal/browser"
	"github.com/nbenliogludev/go-recipe-agent/internal/config"
	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/llm"
	"github.com/nbenliogludev/go-recipe-agent/internal/options"
	"github.com/nbenliogludev/go-recipe-agent/internal/prompt"
	"github.com/nbenliogludev/go-recipe-agent/internal/relay"
	"github.com/nbenliogludev/go-recipe-agent/internal/runtime"
	"github.com/nbenliogludev/go-recipe-agent/internal/runtime/claudecli"
	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

type Event = relay.Event

type Agent struct {
	relay *relay.Relay
	opts  options.AgentOptions
	tools tools.Server
	log   zerolog.Logger
}

// Options assembles the agent options cfg describes without creating a
// runtime.
func Options(cfg *config.Config) (options.AgentOptions, error) {
	mode, err := options.ParseMode(cfg.Mode)
	if err != nil {
		return options.AgentOptions{}, err
	}
	proc, err := loadProcedure(cfg.Prompt.Path)
	if err != nil {
		return options.AgentOptions{}, err
	}
	return options.Assemble(mode, options.Inputs{
		Env:       options.EnvSnapshot(),
		Procedure: proc,
		Model:     cfg.Model,
		Exec:      launch.FromEnv(os.LookupEnv),
	}), nil
}

func loadProcedure(path string) (prompt.Procedure, error) {
	if path == "" {
		return prompt.Default()
	}
	return prompt.Load(path)
}

// New builds an agent. With the openai runtime in embedded mode it also
// starts the in-process browser, released by Close.
func New(cfg *config.Config, log zerolog.Logger) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	a := &Agent{opts: opts, log: log}
	rt, err := a.runtime(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.relay = relay.New(rt, opts, log)
	return a, nil
}

func (a *Agent) runtime(cfg *config.Config) (runtime.Runtime, error) {
	switch cfg.Runtime {
	case config.RuntimeClaudeCLI:
		return claudecli.New(claudecli.Config{
			Path:          cfg.Claude.Path,
			MCPConfigPath: cfg.Claude.MCPConfig,
		}, a.log), nil

	case config.RuntimeOpenAI:
		client, err := llm.NewOpenAIClient(llm.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
		}, a.log)
		if err != nil {
			return nil, err
		}
		agentOpts := []agent.Option{agent.WithModel(cfg.OpenAI.Model)}
		if a.opts.MCPServers == nil {
			srv, err := startBrowser(cfg.Browser, a.log)
			if err != nil {
				return nil, err
			}
			a.tools = srv
			agentOpts = append(agentOpts, agent.WithToolServer(srv))
		}
		return agent.New(client, a.log, agentOpts...), nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownRuntime, cfg.Runtime)
}

func startBrowser(cfg config.BrowserConfig, log zerolog.Logger) (tools.Server, error) {
	exec := launch.FromEnv(os.LookupEnv)
	switch cfg.Backend {
	case config.BackendChromedp:
		s, err := browser.NewCDPSession(browser.CDPConfig{RemoteURL: cfg.CDPURL, Exec: exec}, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		m, err := browser.NewManager(exec, log)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Stream runs task and yields the normalized events.
func (a *Agent) Stream(ctx context.Context, task string) iter.Seq2[Event, error] {
	return a.relay.Stream(ctx, task)
}

func (a *Agent) Options() options.AgentOptions {
	return a.opts
}

func (a *Agent) Close() error {
	if a.tools == nil {
		return nil
	}
	err := a.tools.Close()
	a.tools = nil
	return err
}

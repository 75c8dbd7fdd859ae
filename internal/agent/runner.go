package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/mcp"
	"github.com/nbenliogludev/go-recipe-agent/internal/options"
	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

var (
	ErrNoChoices    = errors.New("no response choices")
	ErrNoToolServer = errors.New("no tool server")
)

// StartFunc starts the tool server described by cfg.
type StartFunc func(ctx context.Context, name string, cfg launch.Config, env map[string]string) (tools.Server, error)

func mcpStarter(log zerolog.Logger) StartFunc {
	return func(ctx context.Context, name string, cfg launch.Config, env map[string]string) (tools.Server, error) {
		c, err := mcp.Start(ctx, name, cfg, env, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// toolServers resolves the servers a run talks to, keyed by server name.
// Servers started here are closed by the returned func; an injected
// server is left to its owner.
func (r *Runtime) toolServers(ctx context.Context, opts options.AgentOptions) (map[string]tools.Server, func(), error) {
	if len(opts.MCPServers) == 0 {
		if r.tools == nil {
			return nil, nil, ErrNoToolServer
		}
		return map[string]tools.Server{tools.ServerName: r.tools}, func() {}, nil
	}

	servers := make(map[string]tools.Server, len(opts.MCPServers))
	closeAll := func() {
		for name, s := range servers {
			if err := s.Close(); err != nil {
				r.log.Warn().Err(err).Str("server", name).Msg("failed to close tool server")
			}
		}
	}

	for _, name := range slices.Sorted(maps.Keys(opts.MCPServers)) {
		s, err := r.start(ctx, name, opts.MCPServers[name], opts.Env)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("start tool server %s: %w", name, err)
		}
		r.log.Debug().Str("server", name).Msg("tool server started")
		servers[name] = s
	}
	return servers, closeAll, nil
}

package agent

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

// execute runs one tool call requested by the model. Refusals and tool
// failures come back as error results for the model to read; only a done
// context ends the run.
func (r *Runtime) execute(ctx context.Context, turn int, call openai.ToolCall, allowed []string, servers map[string]tools.Server, mem *StepMemory) (tools.Result, error) {
	name := call.Function.Name
	args := rawArgs(call.Function.Arguments)
	log := r.log.With().Int("turn", turn).Str("tool", name).Logger()

	if !permitted(allowed, name) {
		log.Warn().Msg("tool not permitted")
		return tools.ErrorResult(fmt.Sprintf("tool %q is not permitted", name)), nil
	}

	server, op, _ := tools.Split(name)
	s, ok := servers[server]
	if !ok {
		log.Warn().Str("server", server).Msg("no such tool server")
		return tools.ErrorResult(fmt.Sprintf("tool server %q is not available", server)), nil
	}

	if blocked, note := mem.ShouldBlock(name, args); blocked {
		log.Warn().Msg("loop guard refused repeated call")
		mem.AddSystemNote(note)
		return tools.ErrorResult(note), nil
	}

	res, err := s.Call(ctx, op, args)
	if err != nil {
		if ctx.Err() != nil {
			return tools.Result{}, ctx.Err()
		}
		log.Warn().Err(err).Msg("tool call failed")
		mem.AddSystemNote(fmt.Sprintf("SYSTEM ERROR: %v", err))
		return tools.ErrorResult(fmt.Sprintf("SYSTEM ERROR: %v", err)), nil
	}

	mem.Add(turn, name, args)
	log.Debug().Bool("is_error", res.IsError).Msg("tool call done")
	return res, nil
}

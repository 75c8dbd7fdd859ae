// Package claudecli runs the claude CLI as the agent runtime and decodes its
// stream-json output.
package claudecli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nbenliogludev/go-recipe-agent/internal/options"
	"github.com/nbenliogludev/go-recipe-agent/internal/runtime"
)

// DefaultPath is the executable looked up on PATH when none is configured.
const DefaultPath = "claude"

const (
	stderrTail = 4 << 10
	waitDelay  = 2 * time.Second
)

var ErrExit = errors.New("claude exited with error")

type Config struct {
	// Path to the claude executable.
	Path string
	// MCPConfigPath points at an MCP config file for embedded mode, where
	// the options carry no tool-server map.
	MCPConfigPath string
}

type Runtime struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Runtime {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	return &Runtime{cfg: cfg, log: log.With().Str("runtime", "claude-cli").Logger()}
}

// Query starts one claude process per iteration of the returned stream.
func (r *Runtime) Query(ctx context.Context, prompt string, opts options.AgentOptions) runtime.Stream {
	return func(yield func(runtime.Message, error) bool) {
		args, err := BuildArgs(prompt, opts, r.cfg.MCPConfigPath)
		if err != nil {
			yield(nil, err)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		cmd := exec.CommandContext(ctx, r.cfg.Path, args...)
		cmd.WaitDelay = waitDelay
		if len(opts.Env) > 0 {
			cmd.Env = options.EnvList(opts.Env)
		}
		stderr := &tailWriter{max: stderrTail}
		cmd.Stderr = stderr

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(nil, fmt.Errorf("stdout pipe: %w", err))
			return
		}
		if err := cmd.Start(); err != nil {
			yield(nil, fmt.Errorf("start %s: %w", r.cfg.Path, err))
			return
		}
		r.log.Debug().Int("pid", cmd.Process.Pid).Int("mcp_servers", len(opts.MCPServers)).Msg("claude started")

		stop := func() {
			cancel()
			_ = cmd.Wait()
		}

		dec := json.NewDecoder(stdout)
		for {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				stop()
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield(nil, fmt.Errorf("%w: %w", ErrExit, ctxErr))
					return
				}
				yield(nil, fmt.Errorf("decode stream: %w", err))
				return
			}
			msg, ok := decodeMessage(raw)
			if !ok {
				continue
			}
			if !yield(msg, nil) {
				stop()
				return
			}
		}

		if err := cmd.Wait(); err != nil {
			// A killed process only reports its signal; the context says why.
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(nil, fmt.Errorf("%w: %w", ErrExit, ctxErr))
				return
			}
			yield(nil, fmt.Errorf("%w: %v: %s", ErrExit, err, strings.TrimSpace(stderr.String())))
		}
	}
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	buf []byte
	max int
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if over := len(w.buf) - w.max; over > 0 {
		w.buf = w.buf[over:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	return string(w.buf)
}

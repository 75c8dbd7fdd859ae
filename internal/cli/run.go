package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-recipe-agent/internal/relay"
	"github.com/nbenliogludev/go-recipe-agent/pkg/recipeagent"
)

func newRunCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the agent on a prompt",
		Long: `Run the agent on a prompt and stream its events. Without arguments the
prompt is read from stdin. Ctrl+C stops the run.`,
		Example: `  recipe-agent run "find a quick vegan chili recipe"
  echo "three banana bread recipes under an hour" | recipe-agent run --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := readTask(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			agent, err := recipeagent.New(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer func() {
				if err := agent.Close(); err != nil {
					a.log.Warn().Err(err).Msg("failed to close browser")
				}
			}()

			var sink eventSink
			if asJSON {
				sink = newJSONSink(cmd.OutOrStdout())
			} else {
				sink = newReporter(cmd.OutOrStdout(), task)
			}
			return stream(ctx, agent, task, sink)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON lines")
	return cmd
}

func readTask(args []string, in io.Reader) (string, error) {
	task := strings.TrimSpace(strings.Join(args, " "))
	if task == "" && in != nil {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		task = strings.TrimSpace(string(data))
	}
	if task == "" {
		return "", errors.New("empty prompt, nothing to do")
	}
	return task, nil
}

type eventSink interface {
	Event(ev relay.Event) error
	Finish(err error)
}

type eventSource interface {
	Stream(ctx context.Context, task string) iter.Seq2[relay.Event, error]
}

func stream(ctx context.Context, src eventSource, task string, sink eventSink) error {
	var runErr error
	for ev, err := range src.Stream(ctx, task) {
		if err != nil {
			runErr = err
			break
		}
		if err := sink.Event(ev); err != nil {
			runErr = err
			break
		}
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	sink.Finish(runErr)
	return runErr
}

type jsonSink struct {
	enc *json.Encoder
}

func newJSONSink(w io.Writer) *jsonSink {
	return &jsonSink{enc: json.NewEncoder(w)}
}

func (s *jsonSink) Event(ev relay.Event) error {
	return s.enc.Encode(ev)
}

func (s *jsonSink) Finish(error) {}

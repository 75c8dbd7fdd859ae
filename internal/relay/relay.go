// Package relay turns a runtime message stream into the normalized event
// sequence exposed to callers.
package relay

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nbenliogludev/go-recipe-agent/internal/options"
	"github.com/nbenliogludev/go-recipe-agent/internal/runtime"
)

type Relay struct {
	rt   runtime.Runtime
	opts options.AgentOptions
	log  zerolog.Logger
}

func New(rt runtime.Runtime, opts options.AgentOptions, log zerolog.Logger) *Relay {
	return &Relay{rt: rt, opts: opts, log: log}
}

// Stream submits prompt and yields events as runtime messages arrive. The
// sequence ends with a Done event, unless the runtime fails: then the error
// is yielded as is and nothing follows it.
func (r *Relay) Stream(ctx context.Context, prompt string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		log := r.log.With().Str("run_id", uuid.NewString()).Logger()
		log.Debug().Str("model", r.opts.Model).Int("max_turns", r.opts.MaxTurns).Msg("relay started")

		var n int
		emit := func(e Event) bool {
			n++
			return yield(e, nil)
		}

		for msg, err := range r.rt.Query(ctx, prompt, r.opts) {
			if err != nil {
				log.Debug().Err(err).Int("events", n).Msg("runtime stream failed")
				yield(Event{}, err)
				return
			}
			if !demux(msg, emit, log) {
				return
			}
		}

		log.Debug().Int("events", n).Msg("relay completed")
		yield(Done(), nil)
	}
}

// demux emits the events carried by one message and reports whether the
// consumer wants more.
func demux(msg runtime.Message, emit func(Event) bool, log zerolog.Logger) bool {
	switch m := msg.(type) {
	case runtime.AssistantMessage:
		for _, block := range m.Content {
			switch b := block.(type) {
			case runtime.TextBlock:
				if !emit(Text(b.Text)) {
					return false
				}
			case runtime.ToolUseBlock:
				log.Debug().Str("tool", b.Name).Str("tool_use_id", b.ID).Int("input_bytes", len(b.Input)).Msg("tool requested")
				if !emit(Tool(b.Name)) {
					return false
				}
			case runtime.OtherBlock:
			}
		}
	case runtime.UsageMessage:
		return emit(Usage(m.Usage.Counts()))
	case runtime.ResultMessage:
		if m.Usage != nil && !emit(Usage(m.Usage.Counts())) {
			return false
		}
		if m.Result != nil {
			return emit(Result(*m.Result))
		}
	case runtime.SystemMessage:
	}
	return true
}

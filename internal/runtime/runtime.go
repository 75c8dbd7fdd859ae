package runtime

import (
	"context"
	"iter"

	"github.com/nbenliogludev/go-recipe-agent/internal/options"
)

// Stream is a finite, single-use sequence of runtime messages. A non-nil
// error ends it.
type Stream = iter.Seq2[Message, error]

// Runtime submits a prompt under opts. Nothing starts until the stream is
// iterated; breaking out of the loop releases the run.
type Runtime interface {
	Query(ctx context.Context, prompt string, opts options.AgentOptions) Stream
}

// Func adapts a function to Runtime.
type Func func(ctx context.Context, prompt string, opts options.AgentOptions) Stream

func (f Func) Query(ctx context.Context, prompt string, opts options.AgentOptions) Stream {
	return f(ctx, prompt, opts)
}

// Collect drains s, returning the messages seen before the first error.
func Collect(s Stream) ([]Message, error) {
	var out []Message
	for msg, err := range s {
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// Scripted returns a stream that yields msgs in order and then err, if set.
func Scripted(err error, msgs ...Message) Stream {
	return func(yield func(Message, error) bool) {
		for _, m := range msgs {
			if !yield(m, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

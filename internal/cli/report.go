package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nbenliogludev/go-recipe-agent/internal/relay"
)

// reporter prints events as they arrive and closes with an execution
// report.
type reporter struct {
	w     io.Writer
	task  string
	start time.Time
	now   func() time.Time

	trace       []string
	result      string
	hasResult   bool
	inTokens    int
	outTokens   int
	usageEvents int
}

func newReporter(w io.Writer, task string) *reporter {
	return &reporter{w: w, task: task, start: time.Now(), now: time.Now}
}

func (r *reporter) Event(ev relay.Event) error {
	var err error
	switch ev.Kind {
	case relay.KindText:
		_, err = fmt.Fprintf(r.w, "🤖 %s\n", ev.Content)
	case relay.KindTool:
		r.trace = append(r.trace, fmt.Sprintf("STEP %d | TOOL=%s", len(r.trace)+1, ev.Name))
		_, err = fmt.Fprintf(r.w, "⚡ TOOL: %s\n", ev.Name)
	case relay.KindUsage:
		r.usageEvents++
		r.inTokens += ev.InputTokens
		r.outTokens += ev.OutputTokens
	case relay.KindResult:
		r.result = ev.Content
		r.hasResult = true
	case relay.KindDone:
	}
	return err
}

func (r *reporter) Finish(err error) {
	duration := r.now().Sub(r.start).Truncate(time.Millisecond)

	fmt.Fprintln(r.w, "\n===== EXECUTION REPORT =====")
	fmt.Fprintf(r.w, "Task: %s\n", r.task)
	fmt.Fprintf(r.w, "Duration: %s\n", duration)
	fmt.Fprintf(r.w, "Exit reason: %s\n", r.exitReason(err))
	if r.usageEvents > 0 {
		fmt.Fprintf(r.w, "Tokens: %d in / %d out\n", r.inTokens, r.outTokens)
	}

	fmt.Fprintln(r.w, "\n--- TOOL TRACE ---")
	if len(r.trace) == 0 {
		fmt.Fprintln(r.w, "(no tool calls)")
	}
	for _, line := range r.trace {
		fmt.Fprintln(r.w, line)
	}

	if r.hasResult {
		fmt.Fprintln(r.w, "\n--- RESULT ---")
		fmt.Fprintln(r.w, strings.TrimSpace(r.result))
	}
	fmt.Fprintln(r.w, "===== END OF REPORT =====")
}

func (r *reporter) exitReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "execution was interrupted by user (Ctrl+C)"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	case err != nil:
		return "runtime error: " + err.Error()
	case r.hasResult:
		return "model finished the task"
	default:
		return "turn limit reached without an answer"
	}
}

package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StepMemory keeps a short history of tool calls and detects a model
// stuck repeating the same call.
type StepMemory struct {
	lines    []string
	maxLines int

	lastKey     string
	repeatCount int
	maxRepeats  int
}

// NewStepMemory allows maxRepeats identical consecutive calls; the next one
// is refused.
func NewStepMemory(maxLines, maxRepeats int) *StepMemory {
	if maxLines <= 0 {
		maxLines = 5
	}
	if maxRepeats < 1 {
		maxRepeats = 2
	}
	return &StepMemory{
		maxLines:   maxLines,
		maxRepeats: maxRepeats,
	}
}

// callKey identifies a call by name and canonical arguments, so that
// reordered or reformatted JSON still counts as the same call.
func callKey(name string, args json.RawMessage) string {
	canon := bytes.TrimSpace(args)
	var v any
	if err := json.Unmarshal(args, &v); err == nil {
		if b, err := json.Marshal(v); err == nil {
			canon = b
		}
	}
	if len(canon) == 0 || string(canon) == "null" {
		canon = []byte("{}")
	}
	return name + "|" + string(canon)
}

// Add records an executed call.
func (m *StepMemory) Add(turn int, name string, args json.RawMessage) {
	key := callKey(name, args)
	m.push(fmt.Sprintf("turn=%d call=%s", turn, key))

	if key == m.lastKey {
		m.repeatCount++
	} else {
		m.lastKey = key
		m.repeatCount = 1
	}
}

// ShouldBlock returns (true, note) when the call would exceed the repeat
// limit. The note is meant for the model.
func (m *StepMemory) ShouldBlock(name string, args json.RawMessage) (bool, string) {
	key := callKey(name, args)
	if key != m.lastKey || m.repeatCount < m.maxRepeats {
		return false, ""
	}
	note := fmt.Sprintf(
		"SYSTEM NOTE: The same action (%s) has already been executed %d times in a row. "+
			"Do NOT repeat it again. Choose a different action or finish if the goal is already achieved.",
		key, m.repeatCount,
	)
	return true, note
}

// AddSystemNote records a note alongside the calls.
func (m *StepMemory) AddSystemNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	m.push(note)
}

func (m *StepMemory) push(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > m.maxLines {
		m.lines = m.lines[len(m.lines)-m.maxLines:]
	}
}

func (m *StepMemory) HistoryLines() []string {
	if len(m.lines) == 0 {
		return nil
	}
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

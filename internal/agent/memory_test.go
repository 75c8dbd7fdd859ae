package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepMemory_BlocksAfterRepeats(t *testing.T) {
	m := NewStepMemory(10, 2)
	args := json.RawMessage(`{"ref":"3"}`)

	blocked, _ := m.ShouldBlock("click", args)
	assert.False(t, blocked)
	m.Add(1, "click", args)

	blocked, _ = m.ShouldBlock("click", args)
	assert.False(t, blocked)
	m.Add(2, "click", args)

	blocked, note := m.ShouldBlock("click", args)
	assert.True(t, blocked)
	assert.Contains(t, note, "2 times in a row")
}

func TestStepMemory_DifferentCallResets(t *testing.T) {
	m := NewStepMemory(10, 2)
	m.Add(1, "click", json.RawMessage(`{"ref":"3"}`))
	m.Add(2, "click", json.RawMessage(`{"ref":"3"}`))
	m.Add(3, "snapshot", nil)

	blocked, _ := m.ShouldBlock("click", json.RawMessage(`{"ref":"3"}`))

	assert.False(t, blocked)
}

func TestCallKey_Canonical(t *testing.T) {
	assert.Equal(t,
		callKey("type", json.RawMessage(`{"text":"chili", "ref":"1"}`)),
		callKey("type", json.RawMessage(`{"ref":"1","text":"chili"}`)),
	)
	assert.Equal(t, "snapshot|{}", callKey("snapshot", nil))
	assert.NotEqual(t, callKey("click", json.RawMessage(`{"ref":"1"}`)), callKey("hover", json.RawMessage(`{"ref":"1"}`)))
}

func TestStepMemory_HistoryIsBounded(t *testing.T) {
	m := NewStepMemory(2, 2)
	m.Add(1, "a", nil)
	m.AddSystemNote("  ")
	m.AddSystemNote("note")
	m.Add(2, "b", nil)

	assert.Equal(t, []string{"note", "turn=2 call=b|{}"}, m.HistoryLines())
}

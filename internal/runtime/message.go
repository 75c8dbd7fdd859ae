// Package runtime defines the contract between the relay and an agent
// runtime: a prompt plus options in, an ordered message stream out.
package runtime

import "encoding/json"

// Message is one unit of runtime output. The set of implementations is
// closed; switch over them at the consumer.
type Message interface {
	isMessage()
}

// AssistantMessage carries model-authored content blocks.
type AssistantMessage struct {
	Content []ContentBlock
}

// UsageMessage carries token accounting on its own.
type UsageMessage struct {
	Usage Usage
}

// ResultMessage is the final message of a run. Result is nil when the run
// ended without a synthesized answer (for example on the turn ceiling).
type ResultMessage struct {
	Subtype  string
	Result   *string
	Usage    *Usage
	NumTurns int
	IsError  bool
}

// SystemMessage carries runtime bookkeeping such as session init.
type SystemMessage struct {
	Subtype   string
	SessionID string
}

func (AssistantMessage) isMessage() {}
func (UsageMessage) isMessage()     {}
func (ResultMessage) isMessage()    {}
func (SystemMessage) isMessage()    {}

// Usage holds token counters; either may be absent.
type Usage struct {
	InputTokens  *int
	OutputTokens *int
}

// Counts returns both counters, zero for absent ones.
func (u Usage) Counts() (in, out int) {
	if u.InputTokens != nil {
		in = *u.InputTokens
	}
	if u.OutputTokens != nil {
		out = *u.OutputTokens
	}
	return in, out
}

// NewUsage builds a usage with both counters present.
func NewUsage(in, out int) Usage {
	return Usage{InputTokens: &in, OutputTokens: &out}
}

// ContentBlock is one element of an assistant message.
type ContentBlock interface {
	isBlock()
}

type TextBlock struct {
	Text string
}

type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// OtherBlock stands for block types the wrapper does not relay, such as
// thinking.
type OtherBlock struct {
	Type string
}

func (TextBlock) isBlock()    {}
func (ToolUseBlock) isBlock() {}
func (OtherBlock) isBlock()   {}

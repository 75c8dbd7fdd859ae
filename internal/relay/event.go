package relay

import "encoding/json"

// Kind tags a relay event.
type Kind string

const (
	KindText   Kind = "text"
	KindTool   Kind = "tool"
	KindUsage  Kind = "usage"
	KindResult Kind = "result"
	KindDone   Kind = "done"
)

// Event is one normalized output unit. Which fields are meaningful depends
// on Kind: Content for text and result, Name for tool, the token counts for
// usage.
type Event struct {
	Kind         Kind
	Content      string
	Name         string
	InputTokens  int
	OutputTokens int
}

func Text(content string) Event   { return Event{Kind: KindText, Content: content} }
func Tool(name string) Event      { return Event{Kind: KindTool, Name: name} }
func Result(content string) Event { return Event{Kind: KindResult, Content: content} }
func Done() Event                 { return Event{Kind: KindDone} }

func Usage(in, out int) Event {
	return Event{Kind: KindUsage, InputTokens: in, OutputTokens: out}
}

// MarshalJSON writes only the fields of the event's kind.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindText, KindResult:
		return json.Marshal(struct {
			Type    Kind   `json:"type"`
			Content string `json:"content"`
		}{e.Kind, e.Content})
	case KindTool:
		return json.Marshal(struct {
			Type Kind   `json:"type"`
			Name string `json:"name"`
		}{e.Kind, e.Name})
	case KindUsage:
		return json.Marshal(struct {
			Type         Kind `json:"type"`
			InputTokens  int  `json:"input_tokens"`
			OutputTokens int  `json:"output_tokens"`
		}{e.Kind, e.InputTokens, e.OutputTokens})
	default:
		return json.Marshal(struct {
			Type Kind `json:"type"`
		}{e.Kind})
	}
}

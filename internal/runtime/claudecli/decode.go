package claudecli

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/nbenliogludev/go-recipe-agent/internal/runtime"
)

// decodeMessage maps one stream-json value onto the runtime message set.
// ok is false for values the relay has no use for (user echoes of tool
// results, stream deltas, unknown types).
func decodeMessage(raw []byte) (msg runtime.Message, ok bool) {
	v := gjson.ParseBytes(raw)

	switch v.Get("type").String() {
	case "system":
		return runtime.SystemMessage{
			Subtype:   v.Get("subtype").String(),
			SessionID: v.Get("session_id").String(),
		}, true

	case "assistant":
		var blocks []runtime.ContentBlock
		for _, b := range v.Get("message.content").Array() {
			blocks = append(blocks, decodeBlock(b))
		}
		return runtime.AssistantMessage{Content: blocks}, true

	case "result":
		res := runtime.ResultMessage{
			Subtype:  v.Get("subtype").String(),
			NumTurns: int(v.Get("num_turns").Int()),
			IsError:  v.Get("is_error").Bool(),
		}
		if r := v.Get("result"); r.Type == gjson.String {
			s := r.String()
			res.Result = &s
		}
		if u := v.Get("usage"); u.IsObject() {
			usage := decodeUsage(u)
			res.Usage = &usage
		}
		return res, true
	}

	if u := v.Get("usage"); u.IsObject() {
		return runtime.UsageMessage{Usage: decodeUsage(u)}, true
	}
	return nil, false
}

func decodeBlock(b gjson.Result) runtime.ContentBlock {
	switch t := b.Get("type").String(); t {
	case "text":
		return runtime.TextBlock{Text: b.Get("text").String()}
	case "tool_use":
		var input json.RawMessage
		if in := b.Get("input"); in.Exists() {
			input = json.RawMessage(in.Raw)
		}
		return runtime.ToolUseBlock{
			ID:    b.Get("id").String(),
			Name:  b.Get("name").String(),
			Input: input,
		}
	default:
		return runtime.OtherBlock{Type: t}
	}
}

func decodeUsage(u gjson.Result) runtime.Usage {
	var usage runtime.Usage
	if f := u.Get("input_tokens"); f.Exists() {
		n := int(f.Int())
		usage.InputTokens = &n
	}
	if f := u.Get("output_tokens"); f.Exists() {
		n := int(f.Int())
		usage.OutputTokens = &n
	}
	return usage
}

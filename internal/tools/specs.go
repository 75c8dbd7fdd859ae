package tools

// Spec declares one operation to a model that calls functions.
type Spec struct {
	Op          string
	Description string
	Parameters  map[string]any
}

// Argument shapes, shared by every tool server implementation.

type NavigateArgs struct {
	URL string `json:"url"`
}

type ElementArgs struct {
	Element string `json:"element"`
	Ref     string `json:"ref"`
}

type TypeArgs struct {
	Element string `json:"element"`
	Ref     string `json:"ref"`
	Text    string `json:"text"`
	Submit  bool   `json:"submit"`
}

type PressKeyArgs struct {
	Key string `json:"key"`
}

type TabNewArgs struct {
	URL string `json:"url"`
}

type TabIndexArgs struct {
	Index *int `json:"index"`
}

type WaitForArgs struct {
	Time     float64 `json:"time"`
	Text     string  `json:"text"`
	TextGone string  `json:"textGone"`
}

type ScreenshotArgs struct {
	FullPage bool `json:"fullPage"`
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

var elementProps = map[string]any{
	"element": str("Human-readable element description"),
	"ref":     str("Element reference from the page snapshot, e.g. \"12\""),
}

// Specs returns the catalog of browser operations in allow-list order.
func Specs() []Spec {
	return []Spec{
		{OpNavigate, "Navigate the current tab to a URL",
			object(map[string]any{"url": str("Absolute URL")}, "url")},
		{OpClick, "Click an element from the snapshot",
			object(elementProps, "element", "ref")},
		{OpType, "Fill text into an editable element",
			object(map[string]any{
				"element": elementProps["element"],
				"ref":     elementProps["ref"],
				"text":    str("Text to type"),
				"submit":  map[string]any{"type": "boolean", "description": "Press Enter afterwards"},
			}, "element", "ref", "text")},
		{OpHover, "Hover over an element from the snapshot",
			object(elementProps, "element", "ref")},
		{OpPressKey, "Press a key, e.g. Enter, Escape, ArrowDown",
			object(map[string]any{"key": str("Key name")}, "key")},
		{OpTabNew, "Open a new tab, optionally at a URL",
			object(map[string]any{"url": str("URL to open")})},
		{OpTabList, "List open tabs", object(map[string]any{})},
		{OpTabSelect, "Select a tab by index",
			object(map[string]any{"index": map[string]any{"type": "integer"}}, "index")},
		{OpTabClose, "Close a tab by index, the current one when omitted",
			object(map[string]any{"index": map[string]any{"type": "integer"}})},
		{OpWaitFor, "Wait for seconds to pass or text to appear or disappear",
			object(map[string]any{
				"time":     map[string]any{"type": "number", "description": "Seconds to wait"},
				"text":     str("Text to wait for"),
				"textGone": str("Text to wait to disappear"),
			})},
		{OpTakeScreenshot, "Take a screenshot of the current page",
			object(map[string]any{"fullPage": map[string]any{"type": "boolean"}})},
		{OpSnapshot, "Capture a structural snapshot of the page with element refs",
			object(map[string]any{})},
	}
}

package tools

import (
	"slices"
	"strings"
)

// ServerName is the tool-server key the browser operations are published under.
const ServerName = "playwright"

const qualifierPrefix = "mcp__"

// Browser operation names, as the Playwright MCP server publishes them.
const (
	OpNavigate       = "browser_navigate"
	OpClick          = "browser_click"
	OpType           = "browser_type"
	OpHover          = "browser_hover"
	OpPressKey       = "browser_press_key"
	OpTabNew         = "browser_tab_new"
	OpTabList        = "browser_tab_list"
	OpTabSelect      = "browser_tab_select"
	OpTabClose       = "browser_tab_close"
	OpWaitFor        = "browser_wait_for"
	OpTakeScreenshot = "browser_take_screenshot"
	OpSnapshot       = "browser_snapshot"
)

var browserOps = []string{
	OpNavigate,
	OpClick,
	OpType,
	OpHover,
	OpPressKey,
	OpTabNew,
	OpTabList,
	OpTabSelect,
	OpTabClose,
	OpWaitFor,
	OpTakeScreenshot,
	OpSnapshot,
}

// Qualify returns the runtime-facing name of op on server.
func Qualify(server, op string) string {
	return qualifierPrefix + server + "__" + op
}

// Split reverses Qualify. ok is false for names that are not qualified.
func Split(name string) (server, op string, ok bool) {
	rest, found := strings.CutPrefix(name, qualifierPrefix)
	if !found {
		return "", "", false
	}
	server, op, found = strings.Cut(rest, "__")
	if !found || server == "" || op == "" {
		return "", "", false
	}
	return server, op, true
}

// AllowList is the fixed set of tool names an agent runtime may invoke.
type AllowList struct {
	names []string
}

// Browser returns the allow-list for the recipe agent.
func Browser() AllowList {
	names := make([]string, len(browserOps))
	for i, op := range browserOps {
		names[i] = Qualify(ServerName, op)
	}
	return AllowList{names: names}
}

// Names returns a copy of the qualified names in declaration order.
func (a AllowList) Names() []string {
	return slices.Clone(a.names)
}

// Permitted reports whether name may be invoked.
func (a AllowList) Permitted(name string) bool {
	return slices.Contains(a.names, name)
}

func (a AllowList) Len() int {
	return len(a.names)
}

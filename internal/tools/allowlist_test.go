package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowser_Names(t *testing.T) {
	al := Browser()

	require.Equal(t, 12, al.Len())
	assert.Equal(t, "mcp__playwright__browser_navigate", al.Names()[0])
	assert.Equal(t, "mcp__playwright__browser_snapshot", al.Names()[11])

	seen := make(map[string]bool)
	for _, n := range al.Names() {
		server, op, ok := Split(n)
		require.True(t, ok, n)
		assert.Equal(t, ServerName, server)
		assert.Contains(t, browserOps, op)
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
}

func TestAllowList_Permitted(t *testing.T) {
	al := Browser()

	assert.True(t, al.Permitted("mcp__playwright__browser_click"))
	assert.False(t, al.Permitted("browser_click"))
	assert.False(t, al.Permitted("mcp__playwright__browser_evaluate"))
	assert.False(t, al.Permitted("mcp__playwright__browser_file_upload"))
	assert.False(t, al.Permitted("Bash"))
	assert.False(t, al.Permitted(""))
}

func TestAllowList_NamesIsACopy(t *testing.T) {
	al := Browser()
	names := al.Names()
	names[0] = "Bash"

	assert.False(t, al.Permitted("Bash"))
	assert.Equal(t, Browser().Names(), al.Names())
}

func TestSplit(t *testing.T) {
	server, op, ok := Split("mcp__playwright__browser_tab_new")
	require.True(t, ok)
	assert.Equal(t, "playwright", server)
	assert.Equal(t, "browser_tab_new", op)

	for _, bad := range []string{"browser_tab_new", "mcp__playwright", "mcp____x", "mcp__s__"} {
		_, _, ok := Split(bad)
		assert.False(t, ok, bad)
	}
}

func TestSpecs_MatchAllowList(t *testing.T) {
	specs := Specs()
	require.Len(t, specs, len(browserOps))
	for i, s := range specs {
		assert.Equal(t, browserOps[i], s.Op)
		assert.Equal(t, "object", s.Parameters["type"])
		assert.NotEmpty(t, s.Description)
	}
}

// Package launch builds the command line used to start the Playwright MCP
// browser server.
package launch

// EnvExecutablePath names the variable that points at a preinstalled
// Chromium. It is set in container images, where the browser has to run
// without the OS sandbox.
const EnvExecutablePath = "PLAYWRIGHT_CHROMIUM_EXECUTABLE_PATH"

const (
	Command = "npx"
	Package = "@playwright/mcp@latest"
)

// Config is the ordered command line for one MCP server process.
type Config struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// ExecContext describes where the browser runs. A non-empty
// ExecutablePath means a constrained container context.
type ExecContext struct {
	ExecutablePath string
}

// Sandboxed reports whether the container flag set applies.
func (e ExecContext) Sandboxed() bool {
	return e.ExecutablePath != ""
}

// FromEnv reads the execution context through lookup, usually os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) ExecContext {
	if lookup == nil {
		return ExecContext{}
	}
	path, _ := lookup(EnvExecutablePath)
	return ExecContext{ExecutablePath: path}
}

func baseArgs() []string {
	return []string{
		Package,
		"--headless",
		"--isolated",
		"--browser=chromium",
		"--viewport-size=1280,720",
	}
}

// ChromiumFlags returns the sandbox-disabling browser flags for the
// context, in fixed order, or nil for local execution.
func ChromiumFlags(e ExecContext) []string {
	if !e.Sandboxed() {
		return nil
	}
	return []string{
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
	}
}

// Build returns a fresh launch config. Locally Playwright detects the
// browser itself; in a container the executable path and the sandbox flags
// are appended.
func Build(e ExecContext) Config {
	args := baseArgs()
	if e.Sandboxed() {
		args = append(args, "--executable-path="+e.ExecutablePath)
		args = append(args, ChromiumFlags(e)...)
	}
	return Config{Command: Command, Args: args}
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
)

func newLaunchArgsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "launch-args",
		Short: "Print the browser tool server command line",
		Long: `Print the command that starts the Playwright MCP server for the current
environment. PLAYWRIGHT_CHROMIUM_EXECUTABLE_PATH switches to the container
flag set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := launch.Build(launch.FromEnv(os.LookupEnv))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cfg.Command+" "+strings.Join(cfg.Args, " "))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

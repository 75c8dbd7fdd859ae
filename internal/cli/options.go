package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-recipe-agent/pkg/recipeagent"
)

func newOptionsCmd(a *app) *cobra.Command {
	var (
		mode    string
		withEnv bool
	)
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Print the assembled agent options",
		Long: `Print the options record an agent run would get: system prompt, model,
allowed tools, turn ceiling and, in standalone mode, the tool server map.
The environment snapshot is left out unless --with-env is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if cmd.Flags().Changed("mode") {
				cfg.Mode = mode
			}
			opts, err := recipeagent.Options(&cfg)
			if err != nil {
				return err
			}
			if !withEnv {
				opts.Env = nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(opts)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "standalone", "standalone or embedded")
	cmd.Flags().BoolVar(&withEnv, "with-env", false, "include the environment snapshot")
	return cmd
}

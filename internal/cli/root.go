// Package cli implements the recipe-agent command line.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-recipe-agent/internal/config"
	"github.com/nbenliogludev/go-recipe-agent/internal/logger"
)

const version = "0.1.0"

type app struct {
	cfgFile  string
	logLevel string

	cfg *config.Config
	log zerolog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "recipe-agent",
		Short: "Recipe browser agent",
		Long: `recipe-agent drives an LLM agent that browses allrecipes.com with a
headless Chromium and streams what it does: text, tool calls, token usage
and the final answer.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.recipe-agent/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	rootCmd.AddCommand(
		newRunCmd(a),
		newOptionsCmd(a),
		newLaunchArgsCmd(a),
	)
	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.NewLoader(a.cfgFile).Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logger.NewWithWriter(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	}, cmd.ErrOrStderr())
	return nil
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}

func GetVersion() string {
	return version
}

// Package cli implements the board command-line interface.
package cli

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskmaster/board"
	"taskmaster/ui"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Server     string
	ConfigPath string
	Verbose    bool

	cfg *Config
}

// Client builds the API client from the resolved configuration.
func (o *RootOptions) Client() *board.Client {
	return board.NewClient(o.cfg.Server, o.cfg.Timeout())
}

// Logger builds the CLI logger honoring the verbose flag.
func (o *RootOptions) Logger() *log.Logger {
	logger := log.New()
	if o.Verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

// NewRootCommand creates the root command. Running it with no subcommand
// opens the interactive board.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Terminal kanban board",
		Long:  "A terminal client for the task tracker: an interactive board plus one-shot commands.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.Server != "" {
				cfg.Server = opts.Server
			}
			opts.cfg = cfg
			return nil
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := board.NewController(opts.Client(), opts.Logger())
			return ui.Run(cmd.Context(), ctrl)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "API base URL (overrides config file and TASKMASTER_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewMoveCommand(opts))
	cmd.AddCommand(NewStarCommand(opts))

	return cmd
}

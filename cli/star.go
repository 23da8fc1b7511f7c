package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskmaster/domain"
)

// NewStarCommand creates the star command.
func NewStarCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "star <id>",
		Short: "Toggle a task's pinned state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStar(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runStar(cmd *cobra.Command, opts *RootOptions, idArg string) error {
	client := opts.Client()
	task, err := resolveTask(cmd.Context(), client, idArg)
	if err != nil {
		return err
	}

	starred := !task.Starred
	updated, err := client.UpdateTask(cmd.Context(), task.ID, domain.TaskPatch{Starred: &starred})
	if err != nil {
		return fmt.Errorf("star task: %w", err)
	}

	if updated.Starred {
		fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s\n", shortID(updated.ID))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %s\n", shortID(updated.ID))
	}
	return nil
}

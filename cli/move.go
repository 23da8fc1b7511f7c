package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskmaster/board"
	"taskmaster/domain"
)

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cmd, rootOpts, args[0], args[1])
		},
	}
	return cmd
}

func runMove(cmd *cobra.Command, opts *RootOptions, idArg, statusArg string) error {
	status, err := parseStatus(statusArg)
	if err != nil {
		return err
	}

	client := opts.Client()
	task, err := resolveTask(cmd.Context(), client, idArg)
	if err != nil {
		return err
	}
	if task.Status == status {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already in %s\n", shortID(task.ID), status)
		return nil
	}

	updated, err := client.UpdateTask(cmd.Context(), task.ID, domain.TaskPatch{Status: &status})
	if err != nil {
		return fmt.Errorf("move task: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", shortID(updated.ID), updated.Status)
	return nil
}

// resolveTask finds a task by full id or unique prefix, so the short ids
// printed by list are usable as arguments.
func resolveTask(ctx context.Context, client *board.Client, idArg string) (domain.Task, error) {
	tasks, err := client.ListTasks(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("load tasks: %w", err)
	}

	var matches []domain.Task
	for _, t := range tasks {
		if t.ID == idArg {
			return t, nil
		}
		if strings.HasPrefix(t.ID, idArg) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return domain.Task{}, fmt.Errorf("no task with id %q", idArg)
	default:
		return domain.Task{}, fmt.Errorf("id %q is ambiguous (%d matches)", idArg, len(matches))
	}
}

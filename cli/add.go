package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskmaster/board"
	"taskmaster/domain"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Priority string
	Status   string
	Assignee string
	Star     bool
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (Low|Medium|High)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "initial column (backlog|in-progress|review|done)")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "assignee")
	cmd.Flags().BoolVar(&opts.Star, "star", false, "pin the task")

	return cmd
}

func runAdd(cmd *cobra.Command, opts *AddOptions, title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if opts.Status != "" {
		if _, err := parseStatus(opts.Status); err != nil {
			return err
		}
	}

	created, err := opts.Client().CreateTask(cmd.Context(), board.CreateInput{
		Title:    strings.TrimSpace(title),
		Priority: domain.Priority(opts.Priority),
		Status:   domain.Status(opts.Status),
		Assignee: opts.Assignee,
		Starred:  opts.Star,
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s [%s, %s]\n", shortID(created.ID), created.Title, created.Priority, created.Status)
	return nil
}

func parseStatus(s string) (domain.Status, error) {
	status := domain.Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range domain.Statuses() {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q: must be one of backlog, in-progress, review, done", s)
}

package cli

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"taskmaster/board"
	"taskmaster/domain"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	JSON bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the board grouped by column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print raw tasks as JSON")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	ctrl := board.NewController(opts.Client(), opts.Logger())
	if err := ctrl.Load(cmd.Context()); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	state := ctrl.State()

	out := cmd.OutOrStdout()
	if opts.JSON {
		enc := sonic.ConfigStd.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(state.Tasks())
	}

	widget := state.StatusWidget()
	fmt.Fprintf(out, "Backlog %d%%  In Progress %d%%  Review %d%%  Done %d%%\n\n",
		widget.Backlog, widget.InProgress, widget.Review, widget.Done)

	cols := state.Columns()
	now := time.Now()
	for _, st := range domain.Statuses() {
		tasks := cols[st]
		fmt.Fprintf(out, "%s (%d)\n", columnName(st), len(tasks))
		for _, t := range tasks {
			star := " "
			if t.Starred {
				star = "*"
			}
			assignee := t.Assignee
			if assignee == "" {
				assignee = "unassigned"
			}
			fmt.Fprintf(out, "  %s [%s] %-8s %s (%s, %s)\n",
				star, shortID(t.ID), t.Priority, t.Title, assignee, board.TimeAgo(t.CreatedAt, now))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func columnName(s domain.Status) string {
	switch s {
	case domain.StatusInProgress:
		return "In Progress"
	case domain.StatusReview:
		return "Review"
	case domain.StatusDone:
		return "Done"
	default:
		return "Backlog"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

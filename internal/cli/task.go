package cli

import (
	"github.com/deixis/devloop/internal/workflow"
	"github.com/spf13/cobra"
)

// NewTaskCommand creates the subcommand running task.
func NewTaskCommand(opts *RootOptions, task workflow.Task, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(task),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.newEngine(cmd)
			if err != nil {
				return err
			}
			result, err := engine.Run(cmd.Context(), task, opts.Verbose)
			if err != nil {
				return interrupted(string(task), err)
			}
			if result.Failed() {
				// Already reported on the console.
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}
}

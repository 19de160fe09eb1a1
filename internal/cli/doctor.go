package cli

import (
	"encoding/json"
	"fmt"

	"github.com/deixis/devloop/internal/console"
	"github.com/spf13/cobra"
)

// DoctorOptions holds flags for the doctor command.
type DoctorOptions struct {
	*RootOptions
	JSON bool
}

// NewDoctorCommand creates the devcontainer smoke-test command.
func NewDoctorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DoctorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the devcontainer has the expected tools and libraries",
		Long: `Runs every configured check in order without stopping on failure, then
prints how many passed. Exits non-zero unless every check passed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the run report as JSON instead of the transcript")

	return cmd
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	engine, err := opts.newEngine(cmd)
	if err != nil {
		return err
	}
	if opts.JSON {
		engine.Console = console.Discard()
	}

	result, err := engine.Doctor(cmd.Context())
	if err != nil {
		return interrupted("doctor", err)
	}

	if opts.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.RunResult); err != nil {
			return WrapExitError(ExitFailure, "encoding report", err)
		}
	}

	if !result.Tally.OK() {
		if opts.JSON {
			return NewExitError(ExitFailure, fmt.Sprintf("%d/%d checks passed", result.Tally.Passed, result.Tally.Attempted))
		}
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

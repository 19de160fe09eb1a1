package cli

import (
	"fmt"

	devmcp "github.com/deixis/devloop/internal/mcp"
	"github.com/deixis/devloop/internal/report"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// recentRuns bounds how many runs dev_inspect can reach.
const recentRuns = 5

// NewMCPCommand creates the command serving devloop over MCP on stdio.
func NewMCPCommand(opts *RootOptions) *cobra.Command {
	var instructions bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), devmcp.Instructions)
				return nil
			}

			loaded, err := opts.load()
			if err != nil {
				return err
			}
			store := report.NewLRUStore(recentRuns)
			server := devmcp.NewServer(loaded.Config, opts.commandRunner(loaded), store, opts.logger(), devmcp.WithTimeout(opts.Timeout))

			opts.logger().Info("serving MCP on stdio", zap.String("root", loaded.Root))
			if err := server.Run(cmd.Context(), &mcpsdk.StdioTransport{}); err != nil && cmd.Context().Err() == nil {
				return WrapExitError(ExitFailure, "mcp server", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")

	return cmd
}

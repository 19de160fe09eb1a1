package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/deixis/devloop/internal/config"
	"github.com/deixis/devloop/internal/console"
	"github.com/deixis/devloop/internal/runner"
	"github.com/deixis/devloop/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	DryRun   bool
	Timeout  time.Duration // 0 uses the config value
	LogLevel string
	Workdir  string // defaults to the current directory

	// Runner replaces the process runner. Tests set it.
	Runner workflow.CommandRunner
	// Logger replaces the logger built from LogLevel. Tests set it.
	Logger *zap.Logger
}

// NewRootCommand creates the root command for the devloop CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devloop <command>",
		Short: "Development helper for common project tasks",
		Long: `devloop runs the project's formatter, linter, test runner and dependency
sync with fixed command lines, and checks that a devcontainer has the
expected tools and libraries installed.

Commands are configured by an optional .devloop file at the project root.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewExitError(ExitUsage, "a command is required (see devloop --help)")
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose test output")
	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "print commands instead of running them")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 0, "per-command timeout (e.g. 5m); 0 uses the config value")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "diagnostic log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVarP(&opts.Workdir, "workdir", "C", "", "run as if started in this directory")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitUsage, c.CommandPath(), err)
	})

	// Add subcommands
	cmd.AddCommand(NewTaskCommand(opts, workflow.Format, "Format code"))
	cmd.AddCommand(NewTaskCommand(opts, workflow.Lint, "Lint code"))
	cmd.AddCommand(NewTaskCommand(opts, workflow.Test, "Run tests"))
	cmd.AddCommand(NewTaskCommand(opts, workflow.Coverage, "Run tests with coverage"))
	cmd.AddCommand(NewTaskCommand(opts, workflow.Sync, "Sync dependencies"))
	cmd.AddCommand(NewTaskCommand(opts, workflow.All, "Run format, lint and test, stopping at the first failure"))
	cmd.AddCommand(NewDoctorCommand(opts))
	cmd.AddCommand(NewMCPCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// setup validates the global flags and builds the logger.
func (o *RootOptions) setup() error {
	if o.Timeout < 0 {
		return NewExitError(ExitUsage, fmt.Sprintf("invalid timeout %s: must not be negative", o.Timeout))
	}
	if o.Logger != nil {
		return nil
	}
	level, err := zapcore.ParseLevel(o.LogLevel)
	if err != nil {
		return WrapExitError(ExitUsage, "invalid log level", err)
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.Logger = logger
	return nil
}

// load reads the project config starting from the working directory.
func (o *RootOptions) load() (*config.LoadResult, error) {
	dir := o.Workdir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		dir = wd
	}
	loaded, err := config.Load(dir)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "loading config", err)
	}
	o.logger().Debug("config loaded",
		zap.String("root", loaded.Root),
		zap.String("path", loaded.Path),
		zap.String("preset", loaded.Config.ActivePreset().Name))
	return loaded, nil
}

// commandRunner returns the runner for the loaded project.
func (o *RootOptions) commandRunner(loaded *config.LoadResult) workflow.CommandRunner {
	if o.Runner != nil {
		return o.Runner
	}
	timeout := loaded.Config.Timeout()
	if o.Timeout > 0 {
		timeout = o.Timeout
	}
	return &runner.Runner{
		Workspace: loaded.Root,
		Timeout:   timeout,
		MaxOutput: loaded.Config.MaxOutputBytes(),
		Logger:    o.logger(),
	}
}

// newEngine builds a workflow engine printing to cmd's streams.
func (o *RootOptions) newEngine(cmd *cobra.Command) (*workflow.Engine, error) {
	loaded, err := o.load()
	if err != nil {
		return nil, err
	}
	return &workflow.Engine{
		Config:  loaded.Config,
		Runner:  o.commandRunner(loaded),
		Console: console.New(cmd.OutOrStdout(), cmd.ErrOrStderr()),
		Logger:  o.logger(),
		DryRun:  o.DryRun,
	}, nil
}

func (o *RootOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Package workflow provides the execution engine for devloop's dispatcher
// tasks and its smoke test. It is consumed by both the MCP server and the
// CLI commands.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/deixis/devloop/internal/config"
	"github.com/deixis/devloop/internal/console"
	"github.com/deixis/devloop/internal/report"
	"github.com/deixis/devloop/internal/runner"
	"go.uber.org/zap"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string) (*runner.Result, error)
}

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config  *config.Config
	Runner  CommandRunner
	Console *console.Printer // nil discards user-facing output
	Logger  *zap.Logger      // nil disables logging
	DryRun  bool             // print commands instead of running them
}

func (e *Engine) console() *console.Printer {
	if e.Console == nil {
		return console.Discard()
	}
	return e.Console
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// toolInfo holds install metadata for a known tool.
type toolInfo struct {
	// Install is the recommended install command or URL.
	Install string
	// Via names the tool that provides this one, when it is not
	// installed on its own.
	Via string
}

// knownTools maps tool binary names to their install metadata.
var knownTools = map[string]toolInfo{
	"uv":            {Install: "curl -LsSf https://astral.sh/uv/install.sh | sh"},
	"python":        {Install: "uv python install", Via: "uv"},
	"ruff":          {Install: "uv add --dev ruff", Via: "uv"},
	"pytest":        {Install: "uv add --dev pytest pytest-cov", Via: "uv"},
	"go":            {Install: "https://go.dev/doc/install"},
	"gofumpt":       {Install: "go install mvdan.cc/gofumpt@latest"},
	"golangci-lint": {Install: "https://golangci-lint.run/welcome/install/"},
}

// ErrToolUnavailable is returned when a required tool is not installed.
// It includes actionable install instructions when the tool is known.
type ErrToolUnavailable struct {
	Name string
	Info *toolInfo
}

func NewErrToolUnavailable(name string) ErrToolUnavailable {
	e := ErrToolUnavailable{Name: name}
	if info, ok := knownTools[name]; ok {
		e.Info = &info
	}
	return e
}

func (e ErrToolUnavailable) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is required but not installed.", e.Name)

	if e.Info == nil {
		return b.String()
	}
	if e.Info.Via != "" {
		fmt.Fprintf(&b, " It is usually provided through %s.", e.Info.Via)
	}
	if e.Info.Install != "" {
		fmt.Fprintf(&b, "\nInstall: %s", e.Info.Install)
	}
	return b.String()
}

// classifyRunError maps an error from CommandRunner.Run to a step status
// and a human-readable detail.
func classifyRunError(argv []string, err error) (string, string) {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return report.StatusUnavailable, NewErrToolUnavailable(argv[0]).Error()
	case errors.Is(err, context.DeadlineExceeded):
		return report.StatusFail, fmt.Sprintf("Command '%s' timed out.", runner.CommandLine(argv))
	default:
		return report.StatusFail, err.Error()
	}
}

// exitDetail describes a non-zero exit.
func exitDetail(argv []string, code int) string {
	return fmt.Sprintf("Command '%s' returned non-zero exit status %d.", runner.CommandLine(argv), code)
}

// toReportStep converts an executed step into its serialisable form.
func toReportStep(name, status, detail string, argv []string, res *runner.Result) report.Step {
	s := report.Step{
		Name:    name,
		Status:  status,
		Command: runner.CommandLine(argv),
		Detail:  detail,
	}
	if res != nil {
		s.ExitCode = res.ExitCode
		s.Stdout = string(res.Stdout)
		s.Stderr = string(res.Stderr)
		s.Truncated = res.Truncated
	}
	return s
}

package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/devloop/internal/report"
	"github.com/deixis/devloop/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type noParams struct{}

type verboseParams struct {
	Verbose bool `json:"verbose,omitempty" jsonschema:"pass the test runner's verbose flag (e.g. pytest -v)"`
}

// taskTools lists the dispatcher tools in registration order.
var taskTools = []struct {
	name    string
	task    workflow.Task
	verbose bool
	desc    string
}{
	{"dev_format", workflow.Format, false, "Format the project in place with the configured formatter (ruff format by default)."},
	{"dev_lint", workflow.Lint, false, "Lint the project with the configured linter (ruff check by default). Fails when the linter reports issues."},
	{"dev_test", workflow.Test, true, "Run the test suite (pytest by default)."},
	{"dev_test_cov", workflow.Coverage, false, "Run the test suite with coverage reporting (pytest --cov by default)."},
	{"dev_sync", workflow.Sync, false, "Sync project dependencies (uv sync --dev by default)."},
	{"dev_all", workflow.All, true, `Run format, lint and test in that order, stopping at the first failure.

Use this after making code changes. Results are stored for drill-down via dev_inspect.`},
}

func registerTaskTools(s *mcp.Server, h *handler) {
	for _, tt := range taskTools {
		tool := &mcp.Tool{Name: tt.name, Description: tt.desc}
		if tt.verbose {
			mcp.AddTool(s, tool, h.verboseTaskHandler(tt.task))
		} else {
			mcp.AddTool(s, tool, h.taskHandler(tt.task))
		}
	}
}

func (h *handler) verboseTaskHandler(task workflow.Task) mcp.ToolHandlerFor[verboseParams, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, params verboseParams) (*mcp.CallToolResult, any, error) {
		return h.runTask(ctx, task, params.Verbose)
	}
}

func (h *handler) taskHandler(task workflow.Task) mcp.ToolHandlerFor[noParams, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ noParams) (*mcp.CallToolResult, any, error) {
		return h.runTask(ctx, task, false)
	}
}

func (h *handler) runTask(ctx context.Context, task workflow.Task, verbose bool) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out bytes.Buffer
	result, err := h.engine(&out).Run(ctx, task, verbose)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errorResult(fmt.Sprintf("%s interrupted", task))
		}
		return errorResult(fmt.Sprintf("%s failed: %v", task, err))
	}

	// Save results for dev_inspect.
	_ = h.store.Save(result.RunResult)

	return textResult(formatTask(out.String(), result))
}

func formatTask(transcript string, result *workflow.TaskResult) string {
	var b strings.Builder
	b.WriteString(transcript)
	fmt.Fprintln(&b)

	if result.Failed() {
		failed := result.Steps[result.FailedIdx]
		fmt.Fprintf(&b, "Status: FAIL (%s: %s)\n", failed.Name, failed.Status)
	} else {
		fmt.Fprintln(&b, "Status: PASS")
	}
	for _, s := range result.Steps {
		fmt.Fprintf(&b, "  %s: %s\n", s.Name, s.Status)
	}
	fmt.Fprintf(&b, "Run: %s\n", result.RunResult.ID)

	if result.Failed() {
		failed := result.Steps[result.FailedIdx]
		fmt.Fprintf(&b, "\nInspect with dev_inspect(run_id=%q, step=%q).\n", result.RunResult.ID, failed.Name)
	}
	return b.String()
}

func (h *handler) doctorHandler(ctx context.Context, req *mcp.CallToolRequest, _ noParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out bytes.Buffer
	result, err := h.engine(&out).Doctor(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errorResult("doctor interrupted")
		}
		return errorResult(fmt.Sprintf("doctor failed: %v", err))
	}

	_ = h.store.Save(result.RunResult)

	return textResult(formatDoctor(out.String(), result))
}

func formatDoctor(transcript string, result *workflow.DoctorResult) string {
	var b strings.Builder
	b.WriteString(transcript)
	fmt.Fprintln(&b)

	if result.Tally.OK() {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Checks: %d/%d passed\n", result.Tally.Passed, result.Tally.Attempted)
	fmt.Fprintf(&b, "Run: %s\n", result.RunResult.ID)

	for _, c := range result.Checks {
		if c.Status != report.StatusPass {
			fmt.Fprintf(&b, "\nInspect with dev_inspect(run_id=%q, step=\"<check name>\").\n", result.RunResult.ID)
			break
		}
	}
	return b.String()
}

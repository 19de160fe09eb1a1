package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/devloop/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a dev_* result"`
	Step  string `json:"step,omitempty" jsonschema:"step or check name (e.g. lint, DuckDB import); omit to list every step"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	if params.Step == "" {
		return textResult(formatRunSummary(result))
	}

	steps := result.StepsNamed(params.Step)
	if len(steps) == 0 {
		return textResult(fmt.Sprintf("No step named %q in run %s (%s).", params.Step, params.RunID, result.Kind))
	}
	return textResult(formatSteps(result, steps))
}

func formatRunSummary(result *report.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s %s)\n", result.ID, result.Kind, result.Name)
	if result.Failed() {
		fmt.Fprintln(&b, "Status: FAIL")
	} else {
		fmt.Fprintln(&b, "Status: PASS")
	}
	if result.Tally != nil {
		fmt.Fprintf(&b, "Checks: %d/%d passed\n", result.Tally.Passed, result.Tally.Attempted)
	}
	fmt.Fprintln(&b)

	for _, s := range result.Steps {
		fmt.Fprintf(&b, "%s: %s", s.Name, s.Status)
		if s.Command != "" {
			fmt.Fprintf(&b, " [%s]", s.Command)
		}
		fmt.Fprintln(&b)
		if s.Detail != "" {
			fmt.Fprintf(&b, "    %s\n", firstLine(s.Detail))
		}
	}
	return b.String()
}

func formatSteps(result *report.RunResult, steps []report.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s %s)\n", result.ID, result.Kind, result.Name)

	for _, s := range steps {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "%s: %s\n", s.Name, s.Status)
		if s.Command != "" {
			fmt.Fprintf(&b, "Command: %s\n", s.Command)
		}
		if s.Status != report.StatusSkipped && s.Status != report.StatusUnavailable {
			fmt.Fprintf(&b, "Exit code: %d\n", s.ExitCode)
		}
		if s.Detail != "" {
			fmt.Fprintf(&b, "Detail: %s\n", s.Detail)
		}
		writeStream(&b, "Stdout", s.Stdout)
		writeStream(&b, "Stderr", s.Stderr)
		if s.Truncated {
			fmt.Fprintln(&b, "(output truncated)")
		}
	}
	return b.String()
}

func writeStream(b *strings.Builder, label, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

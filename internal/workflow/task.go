package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/deixis/devloop/internal/report"
	"github.com/deixis/devloop/internal/runner"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Task names a dispatcher subcommand.
type Task string

const (
	Format   Task = "format"
	Lint     Task = "lint"
	Test     Task = "test"
	Coverage Task = "test-cov"
	Sync     Task = "sync"
	All      Task = "all"
)

// Tasks lists every task in help order.
var Tasks = []Task{Format, Lint, Test, Coverage, Sync, All}

// ParseTask returns the task with the given name.
func ParseTask(name string) (Task, error) {
	for _, t := range Tasks {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown task %q (want one of %v)", name, Tasks)
}

// Steps returns the single-tool steps t expands to, in execution order.
func (t Task) Steps() []Task {
	if t == All {
		return []Task{Format, Lint, Test}
	}
	return []Task{t}
}

// stepSpec holds the fixed messages of a single-tool step.
type stepSpec struct {
	header  string
	passMsg string // empty prints nothing on success
	failMsg string
	// warn prints failMsg as a bare warning line instead of a ❌ notice.
	warn bool
	// strict steps are expected to succeed; a failure also prints the
	// exit detail.
	strict bool
}

var stepSpecs = map[Task]stepSpec{
	Format: {
		header:  "Formatting code...",
		failMsg: "Formatting failed!",
		strict:  true,
	},
	Lint: {
		header:  "Linting code...",
		passMsg: "Code passed linting!",
		failMsg: "Linting found issues. Fix them and try again.",
		warn:    true,
	},
	Test: {
		header:  "Running tests...",
		passMsg: "All tests passed!",
		failMsg: "Tests failed!",
	},
	Coverage: {
		header:  "Running tests with coverage...",
		passMsg: "Coverage report generated!",
		failMsg: "Tests failed!",
	},
	Sync: {
		header:  "Syncing dependencies...",
		passMsg: "Dependencies synced!",
		failMsg: "Dependency sync failed!",
		strict:  true,
	},
}

// TaskResult holds the full outcome of a task run.
type TaskResult struct {
	RunResult *report.RunResult
	Steps     []StepResult
	FailedIdx int // -1 if all passed
}

// Failed reports whether a step failed.
func (r *TaskResult) Failed() bool {
	return r.FailedIdx >= 0
}

// StepResult holds the outcome of a single step.
type StepResult struct {
	Name    string
	Status  string // pass, fail, skipped, unavailable
	Detail  string // failure reason, e.g. the exit status
	Command []string
	Result  *runner.Result // nil when skipped, dry or not started
}

// Command returns the argv a single-tool step runs.
func (e *Engine) Command(step Task, verbose bool) []string {
	switch step {
	case Format:
		return e.Config.FormatCommand()
	case Lint:
		return e.Config.LintCommand()
	case Test:
		return e.Config.TestCommand(verbose)
	case Coverage:
		return e.Config.CoverageCommand()
	case Sync:
		return e.Config.SyncCommand()
	}
	return nil
}

// Run executes task. Steps run in sequence and the run stops at the first
// failure; the remaining steps are reported as skipped. verbose only
// affects the test step.
//
// A returned error means the run was interrupted; step failures are
// reported through TaskResult.
func (e *Engine) Run(ctx context.Context, task Task, verbose bool) (*TaskResult, error) {
	if _, err := ParseTask(string(task)); err != nil {
		return nil, err
	}
	runID := uuid.New().String()
	log := e.logger().With(zap.String("run", runID), zap.String("task", string(task)))

	steps := task.Steps()
	results := make([]StepResult, len(steps))
	for i, step := range steps {
		results[i] = StepResult{Name: string(step), Status: report.StatusSkipped}
	}

	p := e.console()
	if task == All {
		p.Println("Running all checks...")
	}

	failedIdx := -1
	for i, step := range steps {
		sr, err := e.runStep(ctx, step, verbose)
		if err != nil {
			log.Warn("run interrupted", zap.String("step", string(step)), zap.Error(err))
			return nil, err
		}
		results[i] = sr
		log.Debug("step finished", zap.String("step", sr.Name), zap.String("status", sr.Status))
		if sr.Status != report.StatusPass {
			failedIdx = i
			break
		}
	}

	if task == All && failedIdx < 0 {
		p.Pass("All checks completed!")
	}

	rr := &report.RunResult{ID: runID, Kind: report.Task, Name: string(task)}
	for _, sr := range results {
		rr.Steps = append(rr.Steps, toReportStep(sr.Name, sr.Status, sr.Detail, sr.Command, sr.Result))
	}

	return &TaskResult{
		RunResult: rr,
		Steps:     results,
		FailedIdx: failedIdx,
	}, nil
}

func (e *Engine) runStep(ctx context.Context, step Task, verbose bool) (StepResult, error) {
	spec := stepSpecs[step]
	p := e.console()
	argv := e.Command(step, verbose)
	sr := StepResult{Name: string(step), Command: argv}

	p.Println(spec.header)

	if e.DryRun {
		p.Errorln("+ " + runner.CommandLine(argv))
		sr.Status = report.StatusPass
		if spec.passMsg != "" {
			p.Pass(spec.passMsg)
		}
		return sr, nil
	}

	p.Println("Running: " + runner.CommandLine(argv))
	res, err := e.Runner.Run(ctx, argv, "")
	switch {
	case errors.Is(err, context.Canceled):
		return sr, fmt.Errorf("%s: %w", step, err)
	case err != nil:
		sr.Status, sr.Detail = classifyRunError(argv, err)
		p.Errorln(sr.Detail)
	default:
		sr.Result = res
		p.Stdout(string(res.Stdout))
		p.Stderr(string(res.Stderr))
		if res.Truncated {
			p.Errorln("(output truncated)")
		}
		if res.ExitCode == 0 {
			sr.Status = report.StatusPass
		} else {
			sr.Status = report.StatusFail
			sr.Detail = exitDetail(argv, res.ExitCode)
			if spec.strict {
				p.Errorln(sr.Detail)
			}
		}
	}

	switch {
	case sr.Status == report.StatusPass:
		if spec.passMsg != "" {
			p.Pass(spec.passMsg)
		}
	case spec.warn:
		p.Warn(spec.failMsg)
	default:
		p.Fail(spec.failMsg)
	}
	return sr, nil
}

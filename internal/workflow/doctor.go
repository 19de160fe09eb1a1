package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/devloop/internal/config"
	"github.com/deixis/devloop/internal/report"
	"github.com/deixis/devloop/internal/runner"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// doctorRule separates the banner and the summary from the checks.
var doctorRule = strings.Repeat("=", 50)

// DoctorResult holds the full outcome of a smoke-test run.
type DoctorResult struct {
	RunResult *report.RunResult
	Checks    []CheckResult
	Tally     report.Tally
}

// CheckResult holds the outcome of a single smoke-test check.
type CheckResult struct {
	Name    string
	Status  string // pass, fail, unavailable
	Detail  string
	Command []string
	Result  *runner.Result
}

// ImportArgv expands an import probe template for module.
func ImportArgv(template []string, module string) []string {
	argv := make([]string, len(template))
	for i, arg := range template {
		argv[i] = strings.ReplaceAll(arg, "{module}", module)
	}
	return argv
}

// Doctor runs every configured smoke-test check in order, without stopping
// on failure, and tallies the results. The run passes only when every
// check passes.
//
// A returned error means the run was interrupted.
func (e *Engine) Doctor(ctx context.Context) (*DoctorResult, error) {
	runID := uuid.New().String()
	log := e.logger().With(zap.String("run", runID), zap.String("task", "doctor"))
	p := e.console()

	checks := e.Config.DoctorChecks()
	importTemplate := e.Config.ImportCommand()

	p.Println("🧪 Testing DevContainer Setup")
	p.Println(doctorRule)

	var tally report.Tally
	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		tally.Attempted++
		cr, err := e.runCheck(ctx, check, importTemplate)
		if err != nil {
			log.Warn("run interrupted", zap.String("check", check.Name), zap.Error(err))
			return nil, err
		}
		if cr.Status == report.StatusPass {
			tally.Passed++
		}
		results = append(results, cr)
	}

	p.Println()
	p.Println(doctorRule)
	p.Printf("📊 Test Results: %d/%d tests passed\n", tally.Passed, tally.Attempted)
	if tally.OK() {
		p.Println("🎉 All tests passed! Your devcontainer is working correctly.")
	} else {
		p.Println("⚠️  Some tests failed. Check the output above for issues.")
	}
	log.Debug("doctor finished", zap.Int("attempted", tally.Attempted), zap.Int("passed", tally.Passed))

	rr := &report.RunResult{ID: runID, Kind: report.Doctor, Name: "doctor", Tally: &tally}
	for _, cr := range results {
		rr.Steps = append(rr.Steps, toReportStep(cr.Name, cr.Status, cr.Detail, cr.Command, cr.Result))
	}

	return &DoctorResult{
		RunResult: rr,
		Checks:    results,
		Tally:     tally,
	}, nil
}

func (e *Engine) runCheck(ctx context.Context, check config.CheckConfig, importTemplate []string) (CheckResult, error) {
	p := e.console()
	argv := check.Command
	if check.IsImport() {
		argv = ImportArgv(importTemplate, check.Import)
	}
	cr := CheckResult{Name: check.Name, Command: argv}

	p.Printf("Testing: %s\n", check.Name)

	if e.DryRun {
		p.Println("   + " + runner.CommandLine(argv))
		cr.Status = report.StatusPass
		p.Pass(check.Name + " - SUCCESS")
		return cr, nil
	}

	res, err := e.Runner.Run(ctx, argv, "")
	switch {
	case errors.Is(err, context.Canceled):
		return cr, fmt.Errorf("%s: %w", check.Name, err)
	case err != nil:
		cr.Status, cr.Detail = classifyRunError(argv, err)
	case res.ExitCode != 0:
		cr.Result = res
		cr.Status = report.StatusFail
		if check.IsImport() {
			cr.Detail = fmt.Sprintf("cannot import %s (exit status %d)", check.Import, res.ExitCode)
		} else {
			cr.Detail = exitDetail(argv, res.ExitCode)
		}
	default:
		cr.Result = res
		cr.Status = report.StatusPass
	}

	if cr.Status == report.StatusPass {
		p.Pass(check.Name + " - SUCCESS")
		if out := strings.TrimSpace(string(res.Stdout)); out != "" {
			p.Printf("   Output: %s\n", out)
		}
		return cr, nil
	}

	p.Fail(check.Name + " - FAILED")
	p.Printf("   Error: %s\n", cr.Detail)
	if cr.Result != nil {
		if stderr := strings.TrimSpace(string(cr.Result.Stderr)); stderr != "" {
			p.Printf("   Stderr: %s\n", stderr)
		}
	}
	return cr, nil
}

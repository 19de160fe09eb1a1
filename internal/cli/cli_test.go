package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deixis/devloop"
	devmcp "github.com/deixis/devloop/internal/mcp"
	"github.com/deixis/devloop/internal/report"
	"github.com/deixis/devloop/internal/runner"
	"github.com/deixis/devloop/internal/testutil"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func execute(t *testing.T, opts *RootOptions, args ...string) result {
	t.Helper()
	if opts.Workdir == "" {
		opts.Workdir = t.TempDir()
	}
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	var out, errb bytes.Buffer
	code := Execute(context.Background(), args, &out, &errb, opts)
	return result{code: code, stdout: out.String(), stderr: errb.String()}
}

func assertGolden(t *testing.T, name string, got string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(got))
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(&RootOptions{})
	commands := []string{"format", "lint", "test", "test-cov", "sync", "all", "doctor", "mcp", "version"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(&RootOptions{})

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	timeoutFlag := cmd.PersistentFlags().Lookup("timeout")
	require.NotNil(t, timeoutFlag)
	assert.Equal(t, "0s", timeoutFlag.DefValue)

	logFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, logFlag)
	assert.Equal(t, "warn", logFlag.DefValue)
}

func TestUnknownCommand(t *testing.T) {
	fr := &testutil.FakeRunner{}
	res := execute(t, &RootOptions{Runner: fr}, "deploy")

	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, `unknown command "deploy"`)
	assert.Empty(t, res.stdout)
	assert.Empty(t, fr.Calls())
}

func TestNoCommand(t *testing.T) {
	res := execute(t, &RootOptions{Runner: &testutil.FakeRunner{}})
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "a command is required")
}

func TestUnknownFlag(t *testing.T) {
	res := execute(t, &RootOptions{Runner: &testutil.FakeRunner{}}, "test", "--fast")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "unknown flag: --fast")
}

func TestNegativeTimeout(t *testing.T) {
	res := execute(t, &RootOptions{Runner: &testutil.FakeRunner{}}, "--timeout=-1s", "test")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "must not be negative")
}

func TestTest_Passing(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		"uv run pytest": testutil.Exit(0, "3 passed in 0.02s\n"),
	}}
	res := execute(t, &RootOptions{Runner: fr}, "test")

	assert.Equal(t, ExitSuccess, res.code)
	assert.Empty(t, res.stderr)
	assertGolden(t, "test_pass", res.stdout)
}

func TestTest_VerboseFlag(t *testing.T) {
	for _, args := range [][]string{{"test", "-v"}, {"--verbose", "test"}} {
		fr := &testutil.FakeRunner{}
		res := execute(t, &RootOptions{Runner: fr}, args...)
		assert.Equal(t, ExitSuccess, res.code)
		assert.Equal(t, []string{"uv run pytest -v"}, fr.Calls(), "args %v", args)
	}
}

func TestTest_Failing(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		"uv run pytest": testutil.Exit(1, "1 failed\n"),
	}}
	res := execute(t, &RootOptions{Runner: fr}, "test")

	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stdout, "❌ Tests failed!\n")
	assert.NotContains(t, res.stderr, "devloop:")
}

func TestLint_Violation(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		"uv run ruff check .": testutil.Exit(1, "example.py:1:8: F401 [*] `os` imported but unused\nFound 1 error.\n"),
	}}
	res := execute(t, &RootOptions{Runner: fr}, "lint")

	assert.Equal(t, ExitFailure, res.code)
	assert.Empty(t, res.stderr)
	assertGolden(t, "lint_fail", res.stdout)
}

func TestFormat_Failure(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		"uv run ruff format .": {ExitCode: 2, Stderr: []byte("error: Failed to parse broken.py:1:5\n")},
	}}
	res := execute(t, &RootOptions{Runner: fr}, "format")

	assert.Equal(t, ExitFailure, res.code)
	assert.Equal(t, "error: Failed to parse broken.py:1:5\n"+
		"Command 'uv run ruff format .' returned non-zero exit status 2.\n", res.stderr)
}

func TestAll_StopsAtLint(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		"uv run ruff check .": testutil.Exit(1, ""),
	}}
	res := execute(t, &RootOptions{Runner: fr}, "all")

	assert.Equal(t, ExitFailure, res.code)
	assert.Equal(t, []string{"uv run ruff format .", "uv run ruff check ."}, fr.Calls())
	assert.NotContains(t, res.stdout, "Running tests...")
}

func TestAll_DryRun(t *testing.T) {
	fr := &testutil.FakeRunner{}
	res := execute(t, &RootOptions{Runner: fr}, "all", "--dry-run", "-v")

	assert.Equal(t, ExitSuccess, res.code)
	assert.Empty(t, fr.Calls())
	assert.Equal(t, "+ uv run ruff format .\n+ uv run ruff check .\n+ uv run pytest -v\n", res.stderr)
	assertGolden(t, "all_dry_run", res.stdout)
}

func TestAll_Interrupted(t *testing.T) {
	fr := &testutil.FakeRunner{Err: map[string]error{
		"uv run ruff format .": fmt.Errorf("running uv: %w", context.Canceled),
	}}
	res := execute(t, &RootOptions{Runner: fr}, "all")

	assert.Equal(t, ExitInterrupted, res.code)
	assert.Contains(t, res.stderr, "devloop: interrupted")
}

func TestDoctor_Mixed(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		"python --version":               testutil.Exit(0, "Python 3.12.4\n"),
		"uv run python -c import duckdb": {ExitCode: 1, Stderr: []byte("ModuleNotFoundError: No module named 'duckdb'\n")},
	}}
	res := execute(t, &RootOptions{Runner: fr}, "doctor")

	assert.Equal(t, ExitFailure, res.code)
	assert.Len(t, fr.Calls(), 10)
	assertGolden(t, "doctor_mixed", res.stdout)
}

func TestDoctor_AllPass(t *testing.T) {
	fr := &testutil.FakeRunner{}
	res := execute(t, &RootOptions{Runner: fr}, "doctor")

	assert.Equal(t, ExitSuccess, res.code)
	assert.Contains(t, res.stdout, "📊 Test Results: 10/10 tests passed\n")
}

func TestDoctor_JSON(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		"uv sync --check": testutil.Exit(1, ""),
	}}
	res := execute(t, &RootOptions{Runner: fr}, "doctor", "--json")

	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "devloop: 9/10 checks passed")

	var rr report.RunResult
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &rr))
	assert.Equal(t, report.Doctor, rr.Kind)
	require.NotNil(t, rr.Tally)
	assert.Equal(t, report.Tally{Attempted: 10, Passed: 9}, *rr.Tally)
	require.Len(t, rr.Steps, 10)
	assert.Equal(t, "Dependencies sync check", rr.Steps[9].Name)
	assert.Equal(t, report.StatusFail, rr.Steps[9].Status)
}

func TestConfig_GoPreset(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devloop"), []byte("version: 1\npreset: go\n"), 0o644))

	fr := &testutil.FakeRunner{}
	res := execute(t, &RootOptions{Runner: fr, Workdir: dir}, "all")

	assert.Equal(t, ExitSuccess, res.code)
	assert.Equal(t, []string{"gofumpt -l -w .", "golangci-lint run ./...", "go test ./..."}, fr.Calls())
}

func TestConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devloop"), []byte("preset: rust\n"), 0o644))

	fr := &testutil.FakeRunner{}
	res := execute(t, &RootOptions{Runner: fr, Workdir: dir}, "lint")

	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "devloop: loading config")
	assert.Empty(t, fr.Calls())
}

func TestMCP_Instructions(t *testing.T) {
	res := execute(t, &RootOptions{}, "mcp", "--instructions")
	assert.Equal(t, ExitSuccess, res.code)
	assert.Equal(t, devmcp.Instructions, res.stdout)
}

func TestVersion(t *testing.T) {
	res := execute(t, &RootOptions{}, "version")
	assert.Equal(t, ExitSuccess, res.code)
	assert.Equal(t, devloop.Version+"\n", res.stdout)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(&ExitError{Code: ExitFailure}))
	assert.Equal(t, ExitUsage, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitUsage, "bad"))))
	assert.Equal(t, ExitUsage, GetExitCode(fmt.Errorf("accepts 0 arg(s)")))
}

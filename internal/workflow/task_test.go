package workflow

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/devloop/internal/config"
	"github.com/deixis/devloop/internal/console"
	"github.com/deixis/devloop/internal/report"
	"github.com/deixis/devloop/internal/runner"
	"github.com/deixis/devloop/internal/testutil"
)

const (
	formatCmd = "uv run ruff format ."
	lintCmd   = "uv run ruff check ."
	testCmd   = "uv run pytest"
	covCmd    = "uv run pytest --cov"
	syncCmd   = "uv sync --dev"
)

func newTestEngine(fr *testutil.FakeRunner) (*Engine, *bytes.Buffer, *bytes.Buffer) {
	var out, errb bytes.Buffer
	return &Engine{
		Config:  &config.Config{},
		Runner:  fr,
		Console: console.New(&out, &errb),
	}, &out, &errb
}

func TestParseTask(t *testing.T) {
	for _, name := range []string{"format", "lint", "test", "test-cov", "sync", "all"} {
		task, err := ParseTask(name)
		require.NoError(t, err)
		assert.Equal(t, name, string(task))
	}
	_, err := ParseTask("deploy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown task "deploy"`)
}

func TestRun_UnknownTask(t *testing.T) {
	fr := &testutil.FakeRunner{}
	e, _, _ := newTestEngine(fr)

	_, err := e.Run(context.Background(), Task("deploy"), false)
	require.Error(t, err)
	assert.Empty(t, fr.Calls())
}

func TestRun_TestPasses(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		testCmd: testutil.Exit(0, "1 passed in 0.01s\n"),
	}}
	e, out, _ := newTestEngine(fr)

	res, err := e.Run(context.Background(), Test, false)
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, -1, res.FailedIdx)
	assert.Equal(t, []string{testCmd}, fr.Calls())
	assert.Equal(t, "Running tests...\n"+
		"Running: uv run pytest\n"+
		"1 passed in 0.01s\n"+
		"✅ All tests passed!\n", out.String())
}

func TestRun_TestVerboseAppendsFlag(t *testing.T) {
	fr := &testutil.FakeRunner{}
	e, _, _ := newTestEngine(fr)

	_, err := e.Run(context.Background(), Test, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"uv run pytest -v"}, fr.Calls())
}

func TestRun_TestFails(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		testCmd: {ExitCode: 1, Stdout: []byte("1 failed\n"), Stderr: []byte("E assert 5 == 6\n")},
	}}
	e, out, errb := newTestEngine(fr)

	res, err := e.Run(context.Background(), Test, false)
	require.NoError(t, err)
	require.True(t, res.Failed())
	assert.Equal(t, report.StatusFail, res.Steps[0].Status)
	assert.Contains(t, out.String(), "❌ Tests failed!\n")
	assert.Equal(t, "E assert 5 == 6\n", errb.String())
	assert.Equal(t, 1, res.RunResult.Steps[0].ExitCode)
	assert.Equal(t, "1 failed\n", res.RunResult.Steps[0].Stdout)
}

func TestRun_LintFails(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		lintCmd: testutil.Exit(1, "F401 `os` imported but unused\n"),
	}}
	e, out, _ := newTestEngine(fr)

	res, err := e.Run(context.Background(), Lint, false)
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Contains(t, out.String(), "Linting found issues. Fix them and try again.\n")
	assert.NotContains(t, out.String(), "✅")
	assert.Equal(t, []string{lintCmd}, fr.Calls())
}

func TestRun_CoverageMessages(t *testing.T) {
	fr := &testutil.FakeRunner{}
	e, out, _ := newTestEngine(fr)

	res, err := e.Run(context.Background(), Coverage, false)
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, []string{covCmd}, fr.Calls())
	assert.Equal(t, "Running tests with coverage...\n"+
		"Running: uv run pytest --cov\n"+
		"✅ Coverage report generated!\n", out.String())
}

func TestRun_SyncReportsSuccess(t *testing.T) {
	fr := &testutil.FakeRunner{}
	e, out, _ := newTestEngine(fr)

	res, err := e.Run(context.Background(), Sync, false)
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Contains(t, out.String(), "✅ Dependencies synced!\n")
}

func TestRun_SyncFailureIsStrict(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		syncCmd: testutil.Exit(2, ""),
	}}
	e, out, errb := newTestEngine(fr)

	res, err := e.Run(context.Background(), Sync, false)
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Contains(t, errb.String(), "Command 'uv sync --dev' returned non-zero exit status 2.")
	assert.Contains(t, out.String(), "❌ Dependency sync failed!")
	assert.NotContains(t, out.String(), "Dependencies synced")
}

func TestRun_AllOrder(t *testing.T) {
	fr := &testutil.FakeRunner{}
	e, out, _ := newTestEngine(fr)

	res, err := e.Run(context.Background(), All, true)
	require.NoError(t, err)
	assert.False(t, res.Failed())

	want := []string{formatCmd, lintCmd, "uv run pytest -v"}
	if diff := cmp.Diff(want, fr.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, out.String(), "Running all checks...\n")
	assert.Contains(t, out.String(), "✅ All checks completed!\n")

	var names []string
	for _, s := range res.RunResult.Steps {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"format", "lint", "test"}, names)
}

func TestRun_AllStopsOnLintFailure(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		lintCmd: testutil.Exit(1, ""),
	}}
	e, out, _ := newTestEngine(fr)

	res, err := e.Run(context.Background(), All, false)
	require.NoError(t, err)
	require.True(t, res.Failed())
	assert.Equal(t, 1, res.FailedIdx)

	if diff := cmp.Diff([]string{formatCmd, lintCmd}, fr.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, report.StatusPass, res.Steps[0].Status)
	assert.Equal(t, report.StatusFail, res.Steps[1].Status)
	assert.Equal(t, report.StatusSkipped, res.Steps[2].Status)
	assert.NotContains(t, out.String(), "Running tests...")
	assert.NotContains(t, out.String(), "All checks completed")
}

func TestRun_AllStopsOnFormatFailure(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		formatCmd: testutil.Exit(2, ""),
	}}
	e, _, _ := newTestEngine(fr)

	res, err := e.Run(context.Background(), All, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.FailedIdx)
	assert.Equal(t, []string{formatCmd}, fr.Calls())
}

func TestRun_AllTestFailure(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		testCmd: testutil.Exit(1, ""),
	}}
	e, out, _ := newTestEngine(fr)

	res, err := e.Run(context.Background(), All, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FailedIdx)
	assert.Contains(t, out.String(), "❌ Tests failed!")
	assert.NotContains(t, out.String(), "All checks completed")
}

func TestRun_ToolUnavailable(t *testing.T) {
	fr := &testutil.FakeRunner{Err: map[string]error{
		lintCmd: fmt.Errorf("executing uv: %w", &exec.Error{Name: "uv", Err: exec.ErrNotFound}),
	}}
	e, out, errb := newTestEngine(fr)

	res, err := e.Run(context.Background(), Lint, false)
	require.NoError(t, err)
	require.True(t, res.Failed())
	assert.Equal(t, report.StatusUnavailable, res.Steps[0].Status)
	assert.Contains(t, errb.String(), "uv is required but not installed.")
	assert.Contains(t, errb.String(), "astral.sh/uv")
	assert.Contains(t, out.String(), "Linting found issues")
}

func TestRun_Timeout(t *testing.T) {
	fr := &testutil.FakeRunner{Err: map[string]error{
		testCmd: fmt.Errorf("running uv: %w", context.DeadlineExceeded),
	}}
	e, _, errb := newTestEngine(fr)

	res, err := e.Run(context.Background(), Test, false)
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Contains(t, errb.String(), "Command 'uv run pytest' timed out.")
}

func TestRun_InterruptedReturnsError(t *testing.T) {
	fr := &testutil.FakeRunner{Err: map[string]error{
		formatCmd: fmt.Errorf("running uv: %w", context.Canceled),
	}}
	e, _, _ := newTestEngine(fr)

	_, err := e.Run(context.Background(), All, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{formatCmd}, fr.Calls())
}

func TestRun_DryRun(t *testing.T) {
	fr := &testutil.FakeRunner{}
	e, out, errb := newTestEngine(fr)
	e.DryRun = true

	res, err := e.Run(context.Background(), All, false)
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Empty(t, fr.Calls())
	assert.Equal(t, "+ uv run ruff format .\n+ uv run ruff check .\n+ uv run pytest\n", errb.String())
	assert.NotContains(t, out.String(), "Running: ")
}

func TestRun_GoPreset(t *testing.T) {
	fr := &testutil.FakeRunner{}
	e, _, _ := newTestEngine(fr)
	e.Config = &config.Config{Preset: "go"}

	_, err := e.Run(context.Background(), All, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"gofumpt -l -w .", "golangci-lint run ./...", "go test ./... -v"}, fr.Calls())
}

func TestRun_TruncatedOutputNotice(t *testing.T) {
	fr := &testutil.FakeRunner{Results: map[string]*runner.Result{
		testCmd: {ExitCode: 0, Stdout: []byte("...."), Truncated: true},
	}}
	e, _, errb := newTestEngine(fr)

	res, err := e.Run(context.Background(), Test, false)
	require.NoError(t, err)
	assert.True(t, res.RunResult.Steps[0].Truncated)
	assert.Contains(t, errb.String(), "(output truncated)")
}

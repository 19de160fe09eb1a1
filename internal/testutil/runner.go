// Package testutil provides test doubles shared by the devloop packages.
package testutil

import (
	"context"
	"sync"

	"github.com/deixis/devloop/internal/runner"
)

// FakeRunner is a test double for workflow.CommandRunner. It returns
// predetermined results keyed by the rendered command line
// (e.g. "uv run ruff check .") and records every call in order.
type FakeRunner struct {
	// Results maps a command line to the result it should return.
	Results map[string]*runner.Result
	// Err maps a command line to the error it should return.
	Err map[string]error

	mu    sync.Mutex
	calls []string
}

// Run implements workflow.CommandRunner. Unknown commands succeed with no
// output.
func (f *FakeRunner) Run(_ context.Context, argv []string, _ string) (*runner.Result, error) {
	key := runner.CommandLine(argv)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if err, ok := f.Err[key]; ok {
		return nil, err
	}
	res := &runner.Result{RunID: "fake", ExitCode: 0}
	if r, ok := f.Results[key]; ok {
		copied := *r
		res = &copied
	}
	res.Argv = append([]string(nil), argv...)
	return res, nil
}

// Calls returns the command lines run so far, in order.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Exit returns a result with the given exit code and stdout.
func Exit(code int, stdout string) *runner.Result {
	return &runner.Result{ExitCode: code, Stdout: []byte(stdout)}
}

// Package report provides structured run results and an in-memory store
// for recent runs. Results are kept as typed structs and can be looked up
// by run ID and step name.
package report

import "errors"

// Kind identifies the type of a run.
type Kind string

const (
	// Task is a dispatcher run (format, lint, test, test-cov, sync, all).
	Task Kind = "task"
	// Doctor is a smoke-test run.
	Doctor Kind = "doctor"
)

// Step statuses.
const (
	StatusPass        = "pass"
	StatusFail        = "fail"
	StatusUnavailable = "unavailable"
	StatusSkipped     = "skipped"
)

// ErrNotFound is returned by Store.Load for unknown run IDs.
var ErrNotFound = errors.New("run not found")

// Store saves and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult holds the structured output from a run.
type RunResult struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Name  string `json:"name"` // task name, or "doctor"
	Steps []Step `json:"steps"`

	// Doctor fields.
	Tally *Tally `json:"tally,omitempty"`
}

// Step is the outcome of one tool invocation within a run.
type Step struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Command   string `json:"command,omitempty"`
	ExitCode  int    `json:"exit_code"`
	Detail    string `json:"detail,omitempty"`
	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Tally counts smoke-test checks. Passed never exceeds Attempted.
type Tally struct {
	Attempted int `json:"attempted"`
	Passed    int `json:"passed"`
}

// OK reports whether every attempted check passed.
func (t Tally) OK() bool {
	return t.Passed == t.Attempted
}

// Failed reports whether any step did not pass or skip.
func (r *RunResult) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFail || s.Status == StatusUnavailable {
			return true
		}
	}
	return false
}

// StepsNamed returns the steps matching name, or all steps when name is empty.
func (r *RunResult) StepsNamed(name string) []Step {
	if name == "" {
		return r.Steps
	}
	var out []Step
	for _, s := range r.Steps {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

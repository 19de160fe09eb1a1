package runner

import (
	"strings"
	"time"
)

// Result holds the output of a command execution.
type Result struct {
	RunID     string        // unique identifier for this run
	Argv      []string      // command as executed
	ExitCode  int           // process exit code
	Stdout    []byte        // captured stdout (may be truncated)
	Stderr    []byte        // captured stderr (may be truncated)
	Truncated bool          // true if either stream exceeded the size cap
	Elapsed   time.Duration // wall time of the process
}

// CommandLine renders argv the way it is shown to users,
// e.g. "uv run ruff check .".
func CommandLine(argv []string) string {
	return strings.Join(argv, " ")
}

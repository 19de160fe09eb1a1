package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess     = 0   // Every step or check passed
	ExitFailure     = 1   // A step failed, or smoke-test checks failed
	ExitUsage       = 2   // Unknown command, bad flags, invalid config
	ExitInterrupted = 130 // Cancelled by SIGINT
)

// ExitError represents an error with a specific exit code.
// An empty Message exits silently; the command has already reported
// the failure on the console.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitUsage)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Errors that are not an ExitError come from cobra's argument and flag
// parsing, so they map to ExitUsage.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUsage
}

// interrupted converts a cancelled run into an ExitError.
func interrupted(name string, err error) error {
	if errors.Is(err, context.Canceled) {
		return NewExitError(ExitInterrupted, "interrupted")
	}
	return WrapExitError(ExitFailure, name, err)
}

// Execute runs the devloop command line with args and returns the process
// exit code. Errors are reported on stderr as "devloop: <message>".
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts *RootOptions) int {
	if opts == nil {
		opts = &RootOptions{}
	}
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil && err.Error() != "" {
		fmt.Fprintf(stderr, "devloop: %v\n", err)
	}
	return GetExitCode(err)
}

//go:build windows

package runner

import "os/exec"

// setupProcessGroup keeps the default cancellation, which kills the
// direct child only. WaitDelay bounds the wait for its descendants.
func setupProcessGroup(cmd *exec.Cmd) {}

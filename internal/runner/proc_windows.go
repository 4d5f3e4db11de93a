//go:build windows

package runner

import "os/exec"

// setProcessGroup is a no-op on Windows; there is no process group to
// arrange before the child starts.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the immediate child. Grandchildren are not
// tracked on Windows.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

//go:build !windows

package dispatch

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// isolateProcess starts the command in its own process group and kills the
// whole group on cancellation.
func isolateProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}

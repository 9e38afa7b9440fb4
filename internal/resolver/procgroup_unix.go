//go:build unix

package resolver

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts cmd as a group leader so cancellation also reaches
// the children spawned by the tool or by the fallback shell.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

//go:build unix

package mode

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the command in its own process group and kills
// the whole group on cancel, so systemctl dies together with sudo.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

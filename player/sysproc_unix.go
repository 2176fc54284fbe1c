//go:build !windows

package player

import (
	"os/exec"
	"syscall"
)

// ownGroup starts the player in its own process group so a terminal
// Ctrl-C reaches us first and we get to save the position.
func ownGroup() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func terminate(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	// negative pid signals the whole group, helpers included
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	return cmd.Process.Kill()
}

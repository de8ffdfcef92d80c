//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// detach starts the process in a new session so it outlives the caller's
// terminal and process group.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

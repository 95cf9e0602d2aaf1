//go:build unix

package runner

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup places the subprocess in its own process group so the
// whole tree can be signalled at once.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessTree sends SIGKILL to the subprocess's process group,
// terminating it together with any children it has spawned.
func killProcessTree(p *os.Process) error {
	pgid, err := syscall.Getpgid(p.Pid)
	if err != nil {
		// Process already gone or group unreadable; fall back to the
		// top-level process.
		return p.Kill()
	}
	return syscall.Kill(-pgid, syscall.SIGKILL)
}

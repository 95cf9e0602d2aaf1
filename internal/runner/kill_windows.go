//go:build windows

package runner

import (
	"os"
	"os/exec"
	"strconv"
)

func setProcessGroup(cmd *exec.Cmd) {
	// Process groups are handled by taskkill on Windows.
}

// killProcessTree terminates the subprocess and its descendants using
// taskkill, which walks the child process tree itself.
func killProcessTree(p *os.Process) error {
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(p.Pid)).Run()
}

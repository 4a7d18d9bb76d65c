//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

// terminateProcess requests a graceful exit.
func terminateProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

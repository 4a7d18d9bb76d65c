//go:build windows

package supervisor

import "os"

// terminateProcess kills immediately; Windows has no graceful signal.
func terminateProcess(p *os.Process) error {
	return p.Kill()
}

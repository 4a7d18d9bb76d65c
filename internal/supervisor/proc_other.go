//go:build !linux

package supervisor

import "os/exec"

// setParentDeathSignal is a no-op outside Linux: there is no portable
// parent-death hook, so teardown relies on Shutdown and the OS reaping.
func setParentDeathSignal(cmd *exec.Cmd) {}

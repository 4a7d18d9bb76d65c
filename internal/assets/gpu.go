package assets

import (
	"context"
	"os/exec"
	"time"
)

// detectNvidiaGPU probes for a usable NVIDIA GPU by invoking nvidia-smi.
// The probe is assumed stable for the process lifetime; the Resolver caches
// its result.
func detectNvidiaGPU() bool {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, path, "-L").Run() == nil
}

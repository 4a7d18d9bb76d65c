package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// healthPollInterval is the fixed cadence of readiness probes.
const healthPollInterval = 500 * time.Millisecond

type healthBody struct {
	Status string `json:"status"`
}

// probeHealth performs one readiness probe. Ready means HTTP 200 with a
// recognized ok body.
func probeHealth(ctx context.Context, client *http.Client, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, healthPollInterval)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return strings.EqualFold(body.Status, "ok")
}

// waitHealthy polls the process health endpoint until ready, racing the poll
// against the process exit watcher: an early exit aborts the gate immediately
// and carries the captured stderr tail.
func waitHealthy(ctx context.Context, client *http.Client, proc *process, timeout time.Duration) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/health", proc.port)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()
	for {
		if probeHealth(ctx, client, url) {
			return nil
		}
		select {
		case <-proc.exitCh:
			return ErrRuntimeExited(proc.exitErr, proc.stderr.Tail())
		case <-deadline.C:
			return startupTimeoutError{port: proc.port}
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

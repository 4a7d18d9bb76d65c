// Package supervisor keeps exactly one (or zero) correctly-configured local
// llama-server process alive and reachable. It is structured into small files
// by concern:
//
//   - supervisor.go: Supervisor type, lifecycle lane, ensure/Shutdown/Status.
//   - config.go: ServerConfig identity, equality, argument building.
//   - process.go: spawn, stderr tail capture, exit watcher, idempotent stop.
//   - health.go: readiness polling raced against early process exit.
//   - idle.go: idle-timeout reaper arming/disarming.
//   - infer.go: the request gateway (validation, ensure, bounded HTTP call).
//   - image.go: image payload resolution and MIME sniffing.
//   - errors.go: error types and Is* helpers.
//   - metrics.go: prometheus counters and histograms.
//
// External packages should treat Infer and Shutdown as the public contract;
// everything else is internal plumbing.
package supervisor

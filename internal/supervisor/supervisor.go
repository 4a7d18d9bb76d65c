package supervisor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"visiond/pkg/types"
)

// Defaults applied when corresponding Options fields are unset.
const (
	defaultStartupTimeout   = 30 * time.Second
	defaultStopTimeout      = 5 * time.Second
	defaultRequestTimeout   = 60 * time.Second
	defaultMaxResponseBytes = 8 << 20
	defaultMaxTokens        = 512
	defaultTemperature      = 0.2
)

// BinaryProvider yields a runnable server binary path.
type BinaryProvider interface {
	EnsureBinary(ctx context.Context) (string, error)
}

// Options encapsulates all supervisor tunables.
type Options struct {
	// StartupTimeout bounds the health gate. Model loading is slow, so this
	// is independent of and longer than RequestTimeout.
	StartupTimeout time.Duration
	// StopTimeout bounds the graceful-termination wait before force kill.
	StopTimeout time.Duration
	// RequestTimeout bounds each inference HTTP call.
	RequestTimeout time.Duration
	// KeepAlive is the idle-reaper duration; zero or negative disables it.
	KeepAlive time.Duration
	// MaxResponseBytes is the inference response-size ceiling.
	MaxResponseBytes int64
	// MaxTokens and Temperature are the per-request defaults.
	MaxTokens   int
	Temperature float32
}

func (o Options) withDefaults() Options {
	if o.StartupTimeout <= 0 {
		o.StartupTimeout = defaultStartupTimeout
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = defaultStopTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.MaxResponseBytes <= 0 {
		o.MaxResponseBytes = defaultMaxResponseBytes
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Temperature <= 0 {
		o.Temperature = defaultTemperature
	}
	return o
}

// Supervisor owns the single llama-server process. All state-mutating
// transitions pass through a one-slot lane so that spawn, reuse-check, and
// shutdown never interleave.
type Supervisor struct {
	opts     Options
	provider BinaryProvider
	log      zerolog.Logger

	// httpClient carries no global timeout; every request uses a context deadline.
	httpClient *http.Client

	// lane is the lifecycle mutex: hold a slot for the duration of any
	// ensure or shutdown transition.
	lane chan struct{}

	mu        sync.Mutex
	proc      *process
	lastCfg   *ServerConfig
	idleTimer *time.Timer
	lastUsed  time.Time

	// test seams
	startProc func(bin string, cfg ServerConfig, port int, log zerolog.Logger) (*process, error)
	pickPort  func() (int, error)
}

// New constructs a Supervisor around the given binary provider.
func New(provider BinaryProvider, opts Options, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		opts:       opts.withDefaults(),
		provider:   provider,
		log:        log,
		httpClient: &http.Client{Timeout: 0},
		lane:       make(chan struct{}, 1),
		startProc:  startProcess,
		pickPort:   pickFreePort,
	}
}

func (s *Supervisor) acquireLane(ctx context.Context) error {
	select {
	case s.lane <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) releaseLane() { <-s.lane }

// ensure makes a healthy process matching cfg available: reuse when the
// active config is equal, stop-then-start when it differs, start fresh when
// none is running. Must not be called while holding the lane.
func (s *Supervisor) ensure(ctx context.Context, cfg ServerConfig) error {
	if err := s.acquireLane(ctx); err != nil {
		return err
	}
	defer s.releaseLane()

	s.mu.Lock()
	proc, last := s.proc, s.lastCfg
	s.mu.Unlock()

	if proc != nil && proc.alive() && last != nil && last.Equal(cfg) {
		return nil
	}
	if proc != nil {
		s.stopProcess(proc)
	}
	return s.startLaned(ctx, cfg)
}

// startLaned provisions, spawns, and health-gates one process. Caller holds
// the lane. A failed start clears the active-config record so the next
// ensure retries cleanly.
func (s *Supervisor) startLaned(ctx context.Context, cfg ServerConfig) error {
	clearOnError := func() {
		s.mu.Lock()
		s.lastCfg = nil
		s.mu.Unlock()
	}

	bin, err := s.provider.EnsureBinary(ctx)
	if err != nil {
		clearOnError()
		return err
	}
	port, err := s.pickPort()
	if err != nil {
		clearOnError()
		return err
	}
	proc, err := s.startProc(bin, cfg, port, s.log)
	if err != nil {
		clearOnError()
		return err
	}
	spawnsTotal.Inc()

	s.mu.Lock()
	s.proc = proc
	cfgCopy := cfg
	s.lastCfg = &cfgCopy
	s.mu.Unlock()

	if err := waitHealthy(ctx, s.httpClient, proc, s.opts.StartupTimeout); err != nil {
		proc.stop(s.opts.StopTimeout)
		s.mu.Lock()
		if s.proc == proc {
			s.proc = nil
		}
		s.lastCfg = nil
		s.mu.Unlock()
		s.log.Warn().Err(err).Int("pid", proc.pid).Msg("server failed to become healthy")
		return err
	}
	proc.healthy.Store(true)
	s.log.Info().Int("pid", proc.pid).Int("port", proc.port).Msg("server healthy")
	return nil
}

// stopProcess clears the handle before waiting so no other component can
// observe or route to the dying process during teardown. Caller holds the lane.
func (s *Supervisor) stopProcess(proc *process) {
	s.mu.Lock()
	if s.proc == proc {
		s.proc = nil
		s.lastCfg = nil
	}
	s.mu.Unlock()
	proc.stop(s.opts.StopTimeout)
	stopsTotal.Inc()
	s.log.Info().Int("pid", proc.pid).Msg("server stopped")
}

// Shutdown tears down the running server, if any. Idempotent and safe to call
// when nothing is running.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	if err := s.acquireLane(ctx); err != nil {
		return err
	}
	defer s.releaseLane()
	s.disarmIdle()
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return nil
	}
	s.stopProcess(proc)
	return nil
}

// Status is a read-only projection of supervisor state.
func (s *Supervisor) Status() types.StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := types.StatusResponse{State: "stopped"}
	if !s.lastUsed.IsZero() {
		st.LastUsed = s.lastUsed.Unix()
	}
	if s.proc == nil {
		return st
	}
	st.PID = s.proc.pid
	st.Port = s.proc.port
	st.ModelPath = s.proc.config.ModelPath
	switch {
	case !s.proc.alive():
		st.State = "crashed"
	case s.proc.healthy.Load():
		st.State = "healthy"
	default:
		st.State = "starting"
	}
	return st
}

// Ready reports whether a healthy server process is live.
func (s *Supervisor) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil && s.proc.alive() && s.proc.healthy.Load()
}

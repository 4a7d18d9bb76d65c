package supervisor

import (
	"context"
	"time"
)

// disarmIdle cancels any pending reaper timer. Called at the start of request
// handling and during shutdown.
func (s *Supervisor) disarmIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// armIdle schedules an automatic shutdown after the keepalive duration.
// Called after every completed request while a process is running; each call
// replaces the previous timer.
func (s *Supervisor) armIdle() {
	if s.opts.KeepAlive <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if s.proc == nil {
		return
	}
	s.idleTimer = time.AfterFunc(s.opts.KeepAlive, s.reap)
}

// reap runs when the idle timer fires; teardown goes through the same
// lifecycle lane as every other transition.
func (s *Supervisor) reap() {
	idleReapsTotal.Inc()
	s.log.Info().Dur("keepalive", s.opts.KeepAlive).Msg("idle timeout reached, stopping server")
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StopTimeout+s.opts.StartupTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.log.Warn().Err(err).Msg("idle reap shutdown failed")
	}
}

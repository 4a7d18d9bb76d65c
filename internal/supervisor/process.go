package supervisor

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// stderrTailBytes bounds the retained stderr capture used to enrich failures.
const stderrTailBytes = 500

// tailWriter keeps the final stderrTailBytes of everything written to it.
type tailWriter struct {
	mu  sync.Mutex
	buf []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if len(w.buf) > stderrTailBytes {
		w.buf = w.buf[len(w.buf)-stderrTailBytes:]
	}
	return len(p), nil
}

func (w *tailWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(string(w.buf))
}

// process is the exclusively-owned handle of one spawned llama-server.
type process struct {
	pid    int
	port   int
	config ServerConfig
	stderr *tailWriter

	healthy atomic.Bool

	// exitCh closes once the child has exited; exitErr is valid after that.
	exitCh  chan struct{}
	exitErr error

	term func() error
	kill func() error

	stopOnce sync.Once
	stopDone chan struct{}
}

func (p *process) alive() bool {
	select {
	case <-p.exitCh:
		return false
	default:
		return true
	}
}

// stop terminates the child: graceful signal, bounded wait, then force kill.
// Idempotent; a concurrent second call joins the in-flight stop.
func (p *process) stop(timeout time.Duration) {
	p.stopOnce.Do(func() {
		go func() {
			defer close(p.stopDone)
			if !p.alive() {
				return
			}
			_ = p.term()
			select {
			case <-p.exitCh:
			case <-time.After(timeout):
				_ = p.kill()
				<-p.exitCh
			}
		}()
	})
	<-p.stopDone
}

// startProcess spawns bin with arguments derived from cfg, wires the stderr
// tail capture and the exit watcher, and returns the live handle.
func startProcess(bin string, cfg ServerConfig, port int, log zerolog.Logger) (*process, error) {
	cmd := exec.Command(bin, cfg.args(port)...)
	cmd.Dir = filepath.Dir(bin)
	cmd.Env = append(os.Environ(), "LLAMA_LOG_VERBOSITY=1")
	tw := &tailWriter{}
	cmd.Stderr = tw
	// Force-kill the child if this process dies without a clean shutdown.
	setParentDeathSignal(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", filepath.Base(bin), err)
	}
	p := &process{
		pid:      cmd.Process.Pid,
		port:     port,
		config:   cfg,
		stderr:   tw,
		exitCh:   make(chan struct{}),
		stopDone: make(chan struct{}),
		term:     func() error { return terminateProcess(cmd.Process) },
		kill:     func() error { return cmd.Process.Kill() },
	}
	go func() {
		p.exitErr = cmd.Wait()
		close(p.exitCh)
	}()
	log.Info().Int("pid", p.pid).Int("port", port).Str("model", cfg.ModelPath).Msg("server process started")
	return p, nil
}

// pickFreePort asks the kernel for an ephemeral loopback port.
func pickFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	return strconv.Atoi(addr[idx+1:])
}

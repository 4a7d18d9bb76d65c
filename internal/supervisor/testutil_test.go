package supervisor

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// providerFunc adapts a func to BinaryProvider.
type providerFunc func(ctx context.Context) (string, error)

func (f providerFunc) EnsureBinary(ctx context.Context) (string, error) { return f(ctx) }

func staticProvider(path string) BinaryProvider {
	return providerFunc(func(context.Context) (string, error) { return path, nil })
}

// fakeBackend is an in-process stand-in for a spawned llama-server: it serves
// /health and /v1/chat/completions on a loopback port.
type fakeBackend struct {
	srv  *httptest.Server
	port int

	healthOK    atomic.Bool
	replyText   atomic.Value  // string
	failMessage atomic.Value  // string; when set, completions return HTTP 500
	replySize   atomic.Int64  // when >0, reply content is this many bytes
	blockCh     chan struct{} // when non-nil, completions block until closed
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	b.healthOK.Store(true)
	b.replyText.Store("a red square on a white background")
	b.failMessage.Store("")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !b.healthOK.Load() {
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if b.blockCh != nil {
			select {
			case <-b.blockCh:
			case <-r.Context().Done():
				return
			}
		}
		if msg := b.failMessage.Load().(string); msg != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": msg}})
			return
		}
		text := b.replyText.Load().(string)
		if n := b.replySize.Load(); n > 0 {
			big := make([]byte, n)
			for i := range big {
				big[i] = 'x'
			}
			text = string(big)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": text}},
			},
		})
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)

	u, err := url.Parse(b.srv.URL)
	if err != nil {
		t.Fatalf("parse backend url: %v", err)
	}
	_, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split backend host: %v", err)
	}
	b.port, err = strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse backend port: %v", err)
	}
	return b
}

// spawnTracker counts fake spawns and stops and tracks concurrent liveness.
type spawnTracker struct {
	mu      sync.Mutex
	spawns  int
	stops   int
	live    int
	maxLive int
}

func (st *spawnTracker) onSpawn() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.spawns++
	st.live++
	if st.live > st.maxLive {
		st.maxLive = st.live
	}
}

func (st *spawnTracker) onStop() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.stops++
	st.live--
}

func (st *spawnTracker) counts() (spawns, stops, maxLive int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.spawns, st.stops, st.maxLive
}

// fakeProcess builds a process handle backed by the fake backend instead of a
// real child. exited controls whether the handle is born dead.
func fakeProcess(port int, tracker *spawnTracker, exited bool) *process {
	p := &process{
		pid:      4242,
		port:     port,
		stderr:   &tailWriter{},
		exitCh:   make(chan struct{}),
		stopDone: make(chan struct{}),
	}
	var exitOnce sync.Once
	die := func() error {
		exitOnce.Do(func() {
			if tracker != nil {
				tracker.onStop()
			}
			close(p.exitCh)
		})
		return nil
	}
	p.term = die
	p.kill = die
	if exited {
		_ = die()
	}
	return p
}

// newTestSupervisor wires a Supervisor whose spawns land on the fake backend.
func newTestSupervisor(t *testing.T, backend *fakeBackend, opts Options) (*Supervisor, *spawnTracker) {
	t.Helper()
	tracker := &spawnTracker{}
	s := New(staticProvider("/usr/local/bin/llama-server"), opts, zerolog.Nop())
	s.startProc = func(bin string, cfg ServerConfig, port int, log zerolog.Logger) (*process, error) {
		tracker.onSpawn()
		p := fakeProcess(backend.port, tracker, false)
		p.config = cfg
		return p, nil
	}
	s.pickPort = func() (int, error) { return backend.port, nil }
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, tracker
}

func intPtr(v int) *int { return &v }

// waitFor polls cond until true or the deadline elapses.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

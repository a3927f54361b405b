// Package health serves liveness and readiness probes backed by periodic
// background checks.
//
// A check flips to unhealthy after FailureThreshold consecutive failures and
// back to healthy after SuccessThreshold consecutive successes, so a single
// slow database ping does not take the service out of rotation.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Check describes one registered probe check.
type Check struct {
	Name    string
	Timeout time.Duration
	Func    CheckFunc
	// FailureThreshold defaults to 3, SuccessThreshold to 1.
	FailureThreshold int
	SuccessThreshold int
}

type state struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Touched only by the goroutine running the check.
	fails, oks int
}

func newState(c Check) *state {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	s := &state{Check: c}
	s.healthy.Store(true)
	return s
}

func (s *state) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if err := s.Func(ctx); err != nil {
		msg := err.Error()
		s.lastErr.Store(&msg)
		s.oks = 0
		s.fails++
		if s.fails >= s.FailureThreshold {
			s.healthy.Store(false)
		}
		return
	}
	s.lastErr.Store(nil)
	s.fails = 0
	s.oks++
	if s.oks >= s.SuccessThreshold {
		s.healthy.Store(true)
	}
}

func (s *state) failure() (string, bool) {
	if s.healthy.Load() {
		return "", false
	}
	if msg := s.lastErr.Load(); msg != nil {
		return *msg, true
	}
	return "unhealthy", true
}

// Service holds the liveness and readiness checks of a process. It starts
// not ready; call SetReady once initialization is complete.
type Service struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*state
	readiness []*state
	cancel    context.CancelFunc
}

// New creates an empty Service.
func New() *Service {
	return &Service{}
}

// Live registers a liveness check.
func (s *Service) Live(c Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, newState(c))
}

// Ready registers a readiness check.
func (s *Service) Ready(c Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, newState(c))
}

// Start runs every registered check immediately and then once per interval
// until ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	all := append(append([]*state(nil), s.liveness...), s.readiness...)
	s.mu.Unlock()

	for _, st := range all {
		go func(st *state) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			st.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					st.run(ctx)
				}
			}
		}(st)
	}
}

// Stop cancels the background checks.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady marks the service as ready or draining.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (s *Service) IsReady() bool {
	return s.ready.Load() && len(s.failures(false)) == 0
}

func (s *Service) failures(live bool) map[string]string {
	s.mu.Lock()
	checks := s.readiness
	if live {
		checks = s.liveness
	}
	checks = append([]*state(nil), checks...)
	s.mu.Unlock()

	out := make(map[string]string)
	for _, st := range checks {
		if msg, failed := st.failure(); failed {
			out[st.Name] = msg
		}
	}
	return out
}

// LiveHandler serves /livez.
func (s *Service) LiveHandler(w http.ResponseWriter, _ *http.Request) {
	write(w, s.failures(true))
}

// ReadyHandler serves /readyz.
func (s *Service) ReadyHandler(w http.ResponseWriter, _ *http.Request) {
	failed := s.failures(false)
	if !s.ready.Load() {
		failed["service"] = "not ready"
	}
	write(w, failed)
}

// write responds with {"status":"ok"} or 503 and
// {"status":"unhealthy","checks":{name:error}}.
func write(w http.ResponseWriter, failed map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	if len(failed) == 0 {
		e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
	} else {
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		sort.Strings(names)
		e.Field("checks", func(e *jx.Encoder) {
			e.ObjStart()
			for _, name := range names {
				e.Field(name, func(e *jx.Encoder) { e.Str(failed[name]) })
			}
			e.ObjEnd()
		})
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	if len(failed) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = w.Write(e.Bytes())
}

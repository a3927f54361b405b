package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
)

const (
	headerLimit      = "X-RateLimit-Limit"
	headerRemaining  = "X-RateLimit-Remaining"
	headerReset      = "X-RateLimit-Reset"
	headerRetryAfter = "Retry-After"
)

// ThrottleHeaders lists the response headers set by Throttle.
var ThrottleHeaders = []string{headerLimit, headerRemaining, headerReset, headerRetryAfter}

// ThrottleConfig limits how often a single client may call mutating
// endpoints. Reads are never throttled.
type ThrottleConfig struct {
	// Limit is the number of writes allowed per Window. Zero disables
	// throttling.
	Limit int
	// Window is the length of the sliding window.
	Window time.Duration
}

// window counts writes in the current and previous fixed windows; the
// sliding estimate weights the previous one by its remaining overlap.
type window struct {
	start time.Time
	prev  int
	curr  int
}

type throttle struct {
	cfg ThrottleConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*window
}

func (t *throttle) take(key string) (remaining int, reset time.Time, ok bool) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.clients[key]
	if w == nil {
		w = &window{start: now.Truncate(t.cfg.Window)}
		t.clients[key] = w
	}
	switch elapsed := now.Sub(w.start); {
	case elapsed >= 2*t.cfg.Window:
		w.prev, w.curr = 0, 0
		w.start = now.Truncate(t.cfg.Window)
	case elapsed >= t.cfg.Window:
		w.prev, w.curr = w.curr, 0
		w.start = w.start.Add(t.cfg.Window)
	}

	overlap := 1 - float64(now.Sub(w.start))/float64(t.cfg.Window)
	used := int(math.Ceil(float64(w.prev)*overlap)) + w.curr
	reset = w.start.Add(t.cfg.Window)
	if used >= t.cfg.Limit {
		return 0, reset, false
	}
	w.curr++
	return t.cfg.Limit - used - 1, reset, true
}

func (t *throttle) sweep() {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, w := range t.clients {
		if now.Sub(w.start) >= 2*t.cfg.Window {
			delete(t.clients, key)
		}
	}
}

// Throttle returns a middleware that rejects POST, PUT and DELETE requests
// with 429 once a client exceeds cfg.Limit per cfg.Window on a route.
// Stale client entries are evicted until ctx is done.
func Throttle(ctx context.Context, cfg ThrottleConfig) Middleware {
	return newThrottle(ctx, cfg, time.Now)
}

func newThrottle(ctx context.Context, cfg ThrottleConfig, now func() time.Time) Middleware {
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	t := &throttle{cfg: cfg, now: now, clients: make(map[string]*window)}
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.sweep()
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			remaining, reset, ok := t.take(clientIP(r) + " " + r.Method + " " + RouteTemplate(r))
			h := w.Header()
			h.Set(headerLimit, strconv.Itoa(cfg.Limit))
			h.Set(headerRemaining, strconv.Itoa(remaining))
			h.Set(headerReset, strconv.FormatInt(reset.Unix(), 10))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retry := int(math.Ceil(reset.Sub(t.now()).Seconds()))
			h.Set(headerRetryAfter, strconv.Itoa(max(retry, 0)))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)

			var e jx.Encoder
			e.ObjStart()
			e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusTooManyRequests) })
			e.Field("message", func(e *jx.Encoder) { e.Str("too many requests") })
			e.ObjEnd()
			_, _ = w.Write(e.Bytes())
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

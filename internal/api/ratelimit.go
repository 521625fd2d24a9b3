package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// A Limiter caps requests per client over a fixed window. The front and
// axis endpoints walk the whole meristem on every request, so one chatty
// client could pin the CPU as the packing grows.
type Limiter struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	seen map[string]*visits
}

type visits struct {
	count int
	since time.Time
}

// NewLimiter allows limit requests per window for each client.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{limit: limit, window: window, seen: make(map[string]*visits)}
}

// Allow records a request from the client and reports whether it is
// within the limit. Opening a fresh window also sweeps expired clients,
// so the map stays bounded without a background goroutine.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.seen[client]
	if !ok || now.Sub(v.since) >= l.window {
		l.sweep(now)
		l.seen[client] = &visits{count: 1, since: now}
		return true
	}

	if v.count < l.limit {
		v.count++
		return true
	}
	return false
}

// RetryAfter returns the seconds until the client's window resets.
func (l *Limiter) RetryAfter(client string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.seen[client]
	if !ok {
		return 0
	}
	left := l.window - time.Since(v.since)
	if left < 0 {
		return 0
	}
	return int(left.Seconds()) + 1
}

// sweep drops clients whose window has long expired. Called with the
// lock held.
func (l *Limiter) sweep(now time.Time) {
	for client, v := range l.seen {
		if now.Sub(v.since) > 2*l.window {
			delete(l.seen, client)
		}
	}
}

// Wrap guards a handler with the limiter, answering 429 with a
// Retry-After header once a client runs out of budget.
func (l *Limiter) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !l.Allow(client) {
			w.Header().Set("Retry-After", strconv.Itoa(l.RetryAfter(client)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientIP identifies the requester: the first X-Forwarded-For hop when
// proxied, otherwise the remote address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

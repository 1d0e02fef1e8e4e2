package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Callers are keyed by the
// forwarded owner id when present and by remote IP otherwise.
type RateLimiter struct {
	rps   float64
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}
	return &RateLimiter{rps: rps, burst: burst, visitors: make(map[string]*visitor)}
}

// StartJanitor drops idle visitors until ctx is done.
func (l *RateLimiter) StartJanitor(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle(time.Now().Add(-idle))
		}
	}
}

func (l *RateLimiter) evictIdle(before time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, item := range l.visitors {
		if item.lastSeen.Before(before) {
			delete(l.visitors, key)
		}
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + extractIP(r.RemoteAddr)
		if owner := strings.TrimSpace(r.Header.Get(OwnerHeader)); owner != "" {
			key = "owner:" + owner
		}
		if !l.limiter(key).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}

package server

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// newClientLimiter returns nil when requestsPerSecond is not positive, which disables limiting.
func newClientLimiter(requestsPerSecond float64, burst int) *clientLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether a request from client may proceed now.
func (l *clientLimiter) Allow(client string) bool {
	if l == nil {
		return true
	}
	return l.get(client).Allow()
}

func (l *clientLimiter) get(client string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[client]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[client]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.rate, l.burst)
	l.limiters[client] = limiter
	return limiter
}

// clientAddr extracts the host part of the request's remote address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

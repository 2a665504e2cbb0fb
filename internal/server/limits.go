package server

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// limiterSet holds one token bucket per client address.
type limiterSet struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func newLimiterSet(perSecond float64, burst int) *limiterSet {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterSet{limit: rate.Limit(perSecond), burst: burst, buckets: make(map[string]*rate.Limiter)}
}

// allow reports whether r may proceed. A nil set never limits.
func (l *limiterSet) allow(r *http.Request) bool {
	if l == nil {
		return true
	}
	key := clientKey(r)
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

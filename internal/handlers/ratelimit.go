package handlers

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shoplite/apiserver/config"
)

const limiterCleanupInterval = 10 * time.Minute

// IPRateLimiter throttles requests per client IP. Each IP gets an
// independent token bucket refilled at the configured rate. It guards
// the credential endpoints against brute forcing.
type IPRateLimiter struct {
	limit rate.Limit
	burst int

	limiters sync.Map

	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

// NewIPRateLimiter builds a limiter allowing cfg.Requests per
// cfg.WindowSeconds with bursts up to cfg.Burst. Zero or negative
// values fall back to 5 requests per minute.
func NewIPRateLimiter(cfg config.RateLimitConfig) *IPRateLimiter {
	requests := cfg.Requests
	if requests <= 0 {
		requests = 5
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = requests
	}

	return &IPRateLimiter{
		limit:       rate.Limit(float64(requests) / window.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// Middleware rejects requests exceeding the per-IP rate with 429.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiterFor(clientIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		l.maybeCleanup()
		next.ServeHTTP(w, r)
	})
}

func (l *IPRateLimiter) limiterFor(key string) *rate.Limiter {
	if existing, ok := l.limiters.Load(key); ok {
		return existing.(*rate.Limiter)
	}
	limiter, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.limit, l.burst))
	return limiter.(*rate.Limiter)
}

// maybeCleanup drops limiters whose buckets have refilled completely.
// A full bucket means the client has been idle long enough that a
// fresh limiter would behave identically. Runs at most once per
// cleanup interval.
func (l *IPRateLimiter) maybeCleanup() {
	l.cleanupMu.Lock()
	if time.Since(l.lastCleanup) < limiterCleanupInterval {
		l.cleanupMu.Unlock()
		return
	}
	l.lastCleanup = time.Now()
	l.cleanupMu.Unlock()

	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}

// clientIP extracts the host part of RemoteAddr. Behind the RealIP
// middleware RemoteAddr already holds a bare IP, in which case the
// value is used as is.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

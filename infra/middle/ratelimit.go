package middle

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sammk21/medusa-admin/infra/response"
)

const defaultRatePerMinute = 100

// RateLimiter allows rate requests per client in each fixed window
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*bucket
	rate    int
	window  time.Duration
	now     func() time.Time
}

type bucket struct {
	used    int
	resetAt time.Time
}

// NewRateLimiter creates a per-minute limiter. A non-positive rate falls back to 100.
// Idle clients are forgotten until ctx is done.
func NewRateLimiter(ctx context.Context, rate int) *RateLimiter {
	rl := newRateLimiter(rate, time.Minute)
	go rl.sweepEvery(ctx, time.Minute)
	return rl
}

func newRateLimiter(rate int, window time.Duration) *RateLimiter {
	if rate <= 0 {
		rate = defaultRatePerMinute
	}
	return &RateLimiter{
		clients: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		now:     time.Now,
	}
}

// Allow reports whether clientIP may send one more request in the current window
func (rl *RateLimiter) Allow(clientIP string) bool {
	ok, _, _ := rl.take(clientIP)
	return ok
}

// take consumes one request and returns what is left and when the window resets
func (rl *RateLimiter) take(clientIP string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.clients[clientIP]
	if b == nil || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(rl.window)}
		rl.clients[clientIP] = b
	}

	if b.used >= rl.rate {
		return false, 0, b.resetAt
	}
	b.used++
	return true, rl.rate - b.used, b.resetAt
}

func (rl *RateLimiter) sweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

// sweep forgets clients whose window ended more than one window ago
func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.clients {
		if now.Sub(b.resetAt) > rl.window {
			delete(rl.clients, ip)
		}
	}
}

// RateLimitMiddleware rejects clients over their budget with 429 and reports the budget in X-RateLimit headers
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, resetAt := rl.take(GetClientIP(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.rate))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !ok {
				retry := int(time.Until(resetAt).Seconds()) + 1
				h.Set("Retry-After", strconv.Itoa(max(retry, 1)))
				response.Error(w, http.StatusTooManyRequests, "Rate limit exceeded", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the remote address
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "::1" || host == "[::1]" {
		return "127.0.0.1"
	}
	return host
}

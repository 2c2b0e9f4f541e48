package httpapi

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/rankvault/leaderboard-service/internal/apierrors"
)

// rateLimiter tracks one token bucket per remote address. Admin mutations
// are rare and expensive (a durable transaction plus table provisioning),
// so a single shared bucket keyed by caller IP is enough to blunt a runaway
// client without the per-tenant bookkeeping the signed query path would need.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
}

func newRateLimiter(perMinute, burst int) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

func (rl *rateLimiter) allow(clientID string) bool {
	rl.mu.Lock()
	limiter, ok := rl.limiters[clientID]
	if !ok {
		limiter = rate.NewLimiter(rl.perSec, rl.burst)
		rl.limiters[clientID] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// rateLimitMiddleware gates the admin surface with a per-caller token bucket.
func rateLimitMiddleware(perMinute, burst int) func(http.Handler) http.Handler {
	limiter := newRateLimiter(perMinute, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := r.Header.Get("X-Forwarded-For")
			if clientID == "" {
				clientID = r.RemoteAddr
			}
			if !limiter.allow(clientID) {
				writeError(w, apierrors.RequestCommon("rate limit exceeded, retry later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

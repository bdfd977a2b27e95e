package quota

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces an in-process requests-per-second ceiling per
// tenant, distinct from the rolling-window quota above: quota answers
// "has this tenant used too much this hour/day/month", the rate
// limiter answers "is this tenant calling too fast right now."
type RateLimiter struct {
	mu       sync.Mutex
	rps      float64
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter allowing rps requests per second
// per tenant, with burst as the token bucket's capacity.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:      rps,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether tenantID may proceed right now, consuming one
// token if so.
func (r *RateLimiter) Allow(tenantID string) bool {
	return r.limiterFor(tenantID).Allow()
}

func (r *RateLimiter) limiterFor(tenantID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[tenantID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.rps), r.burst)
		r.limiters[tenantID] = l
	}
	return l
}

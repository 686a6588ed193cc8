package signal

import (
	"sync"

	"github.com/SkyMonder/SkyCalling/internal/domain"
	"golang.org/x/time/rate"
)

// pruneAt is the table size above which idle limiters are dropped.
const pruneAt = 1024

// CallRateLimiter bounds how often one identity may place calls.
type CallRateLimiter struct {
	mu       sync.Mutex
	limiters map[domain.Identity]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewCallRateLimiter(perSecond float64, burst int) *CallRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &CallRateLimiter{
		limiters: make(map[domain.Identity]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *CallRateLimiter) Allow(id domain.Identity) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limiters[id]
	if !ok {
		if len(rl.limiters) >= pruneAt {
			rl.prune()
		}
		lim = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[id] = lim
	}
	return lim.Allow()
}

// prune drops limiters that have refilled completely; they behave exactly
// like fresh ones.
func (rl *CallRateLimiter) prune() {
	for id, lim := range rl.limiters {
		if lim.Tokens() >= float64(rl.burst) {
			delete(rl.limiters, id)
		}
	}
}

func (rl *CallRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

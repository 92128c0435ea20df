package app

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dkeye/classmeet/internal/domain"
)

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// JoinRateLimiter bounds join attempts per user with a token bucket.
type JoinRateLimiter struct {
	mu      sync.Mutex
	byUser  map[domain.UserID]*limiterEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewJoinRateLimiter allows perSecond attempts with the given burst. A
// non-positive perSecond disables limiting.
func NewJoinRateLimiter(perSecond float64, burst int) *JoinRateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &JoinRateLimiter{
		byUser:  make(map[domain.UserID]*limiterEntry),
		limit:   limit,
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (rl *JoinRateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.byUser[uid]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.byUser[uid] = e
	}
	e.seen = now
	allowed := e.lim.AllowN(now, 1)
	rl.sweep(now)
	return allowed
}

// sweep drops buckets of users idle for longer than idleTTL.
func (rl *JoinRateLimiter) sweep(now time.Time) {
	if len(rl.byUser) < 1024 {
		return
	}
	for uid, e := range rl.byUser {
		if now.Sub(e.seen) > rl.idleTTL {
			delete(rl.byUser, uid)
		}
	}
}

package router

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter keeps one token bucket per user. Buckets idle for longer than
// idleTTL are dropped when the map grows.
type userLimiter struct {
	mu      sync.Mutex
	perMin  int
	buckets map[int64]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

const (
	limiterSweepAt = 1024
	limiterIdleTTL = 10 * time.Minute
)

func newUserLimiter(perMin int) *userLimiter {
	return &userLimiter{perMin: perMin, buckets: map[int64]*bucket{}}
}

// set changes the rate; existing buckets are reset.
func (l *userLimiter) set(perMin int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if perMin == l.perMin {
		return
	}
	l.perMin = perMin
	l.buckets = map[int64]*bucket{}
}

func (l *userLimiter) allow(user int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perMin <= 0 {
		return true
	}
	b := l.buckets[user]
	if b == nil {
		if len(l.buckets) >= limiterSweepAt {
			l.sweepLocked(now)
		}
		burst := l.perMin / 4
		if burst < 1 {
			burst = 1
		}
		b = &bucket{lim: rate.NewLimiter(rate.Limit(float64(l.perMin)/60), burst)}
		l.buckets[user] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (l *userLimiter) sweepLocked(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.seen) > limiterIdleTTL {
			delete(l.buckets, id)
		}
	}
}

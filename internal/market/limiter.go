package market

import (
	"sync"
	"time"
)

// Limiter spaces outbound requests at least minInterval apart. It keeps a
// single "last issued" timestamp; callers queue on the mutex and the one
// holding it sleeps out the remainder of the interval.
type Limiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

func NewLimiter(minInterval time.Duration) *Limiter {
	return &Limiter{minInterval: minInterval}
}

// Wait blocks until a request may be issued and returns the issue time it
// recorded. It cannot be cancelled.
func (l *Limiter) Wait() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if elapsed := time.Since(l.last); elapsed < l.minInterval {
			time.Sleep(l.minInterval - elapsed)
		}
	}
	l.last = time.Now()
	return l.last
}

func (l *Limiter) MinInterval() time.Duration {
	return l.minInterval
}

package authcore

import (
	"strings"
	"sync"
	"time"
)

// signupLimiter spaces signup attempts per identity. State is owned by
// the instance, never package-global, so two services in one process
// throttle independently. Reservation is atomic: of N concurrent
// attempts for one identity, exactly one proceeds.
type signupLimiter struct {
	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time

	sweepStop chan struct{}
	sweepOnce sync.Once
}

func newSignupLimiter(cooldown, sweepInterval time.Duration) *signupLimiter {
	l := &signupLimiter{
		cooldown:  cooldown,
		now:       time.Now,
		last:      make(map[string]time.Time),
		sweepStop: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go l.sweepLoop(sweepInterval)
	}
	return l
}

// reserve records an attempt for identity unless one happened within
// the cooldown. The attempt is recorded before the outcome is known:
// failed signups cool down the same as successful ones.
func (l *signupLimiter) reserve(identity string) (time.Duration, bool) {
	key := strings.ToLower(strings.TrimSpace(identity))
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.last[key]; ok {
		if elapsed := now.Sub(prev); elapsed < l.cooldown {
			return l.cooldown - elapsed, false
		}
	}
	l.last[key] = now
	return 0, true
}

func (l *signupLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.sweepStop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *signupLimiter) sweep() {
	cutoff := l.now().Add(-l.cooldown)

	l.mu.Lock()
	for key, at := range l.last {
		if at.Before(cutoff) {
			delete(l.last, key)
		}
	}
	l.mu.Unlock()
}

func (l *signupLimiter) close() {
	l.sweepOnce.Do(func() { close(l.sweepStop) })
}

package authcore

import (
	"sync"
	"testing"
	"time"
)

func newTestLimiter(cooldown time.Duration) *signupLimiter {
	// Sweep disabled; tests drive time through the injected clock.
	return newSignupLimiter(cooldown, 0)
}

func TestReserveSingleWinner(t *testing.T) {
	limiter := newTestLimiter(5 * time.Second)
	defer limiter.close()

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := limiter.reserve("race@example.com"); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if winners != 1 {
		t.Fatalf("%d reservations won, want exactly 1", winners)
	}
}

func TestReserveCooldownExpiry(t *testing.T) {
	limiter := newTestLimiter(5 * time.Second)
	defer limiter.close()

	base := time.Now()
	limiter.now = func() time.Time { return base }

	if _, ok := limiter.reserve("a@example.com"); !ok {
		t.Fatal("first reservation must win")
	}

	limiter.now = func() time.Time { return base.Add(3 * time.Second) }
	remaining, ok := limiter.reserve("a@example.com")
	if ok {
		t.Fatal("reservation inside cooldown must be refused")
	}
	if remaining != 2*time.Second {
		t.Fatalf("remaining = %v, want 2s", remaining)
	}

	limiter.now = func() time.Time { return base.Add(5 * time.Second) }
	if _, ok := limiter.reserve("a@example.com"); !ok {
		t.Fatal("reservation at cooldown boundary must win")
	}
}

func TestReserveNormalizesIdentity(t *testing.T) {
	limiter := newTestLimiter(5 * time.Second)
	defer limiter.close()

	if _, ok := limiter.reserve("User@Example.COM"); !ok {
		t.Fatal("first reservation must win")
	}
	if _, ok := limiter.reserve("  user@example.com "); ok {
		t.Fatal("case and whitespace variants must share one cooldown")
	}
	if _, ok := limiter.reserve("other@example.com"); !ok {
		t.Fatal("distinct identity must not be throttled")
	}
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	limiter := newTestLimiter(5 * time.Second)
	defer limiter.close()

	base := time.Now()
	limiter.now = func() time.Time { return base }
	limiter.reserve("old@example.com")

	limiter.now = func() time.Time { return base.Add(time.Minute) }
	limiter.reserve("fresh@example.com")
	limiter.sweep()

	limiter.mu.Lock()
	_, oldKept := limiter.last["old@example.com"]
	_, freshKept := limiter.last["fresh@example.com"]
	limiter.mu.Unlock()

	if oldKept {
		t.Fatal("expired entry survived sweep")
	}
	if !freshKept {
		t.Fatal("live entry removed by sweep")
	}
}

func TestLimiterCloseIsIdempotent(t *testing.T) {
	limiter := newSignupLimiter(5*time.Second, time.Minute)
	limiter.close()
	limiter.close()
}

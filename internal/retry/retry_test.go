package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelayLadder(t *testing.T) {
	p := Policy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for attempt, expected := range want {
		if got := p.Delay(attempt); got != expected {
			t.Fatalf("Delay(%d) = %v, want %v", attempt, got, expected)
		}
	}
}

func TestDelayZeroBase(t *testing.T) {
	p := Policy{MaxRetries: 3}
	if got := p.Delay(2); got != 0 {
		t.Fatalf("Delay with zero base = %v, want 0", got)
	}
}

func TestJitterBounds(t *testing.T) {
	p := Policy{BaseDelay: time.Second, JitterFraction: 0.1}

	for i := 0; i < 100; i++ {
		d := p.jittered(time.Second)
		if d < 900*time.Millisecond || d > 1100*time.Millisecond {
			t.Fatalf("jittered delay %v outside +-10%% band", d)
		}
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}

	attempts := 0
	err := Do(context.Background(), p, nil, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do = %v, want nil", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	p := Policy{MaxRetries: 5, BaseDelay: time.Millisecond}
	terminal := errors.New("terminal")

	attempts := 0
	err := Do(context.Background(), p, func(err error) bool {
		return !errors.Is(err, terminal)
	}, func(context.Context) error {
		attempts++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("Do = %v, want terminal error", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}
	transient := errors.New("transient")

	attempts := 0
	err := Do(context.Background(), p, nil, func(context.Context) error {
		attempts++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("Do = %v, want last transient error", err)
	}
	if attempts != 4 {
		t.Fatalf("attempts = %d, want 1+MaxRetries", attempts)
	}
}

func TestDoHonorsCancellation(t *testing.T) {
	p := Policy{MaxRetries: 10, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, nil, func(context.Context) error {
			return errors.New("transient")
		})
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Do under cancellation = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

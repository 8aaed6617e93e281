package relaytest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blockberries/relay"
)

// LimiterFactory returns a fresh limiter enforcing cfg and reading
// time from clock.
type LimiterFactory func(t *testing.T, cfg relay.RateLimitConfig, clock *Clock) relay.RateLimiter

// RunRateLimiterSuite runs the fixed-window admission contract
// against a relay.RateLimiter implementation.
func RunRateLimiterSuite(t *testing.T, factory LimiterFactory) {
	t.Helper()
	ctx := context.Background()
	cfg := relay.RateLimitConfig{Capacity: 3, Window: time.Minute}

	admit := func(t *testing.T, l relay.RateLimiter, key string) bool {
		t.Helper()
		ok, err := l.Admit(ctx, key)
		if err != nil {
			t.Fatalf("Admit(%q): %v", key, err)
		}
		return ok
	}

	t.Run("admits_capacity_then_rejects", func(t *testing.T) {
		clock := NewClock()
		l := factory(t, cfg, clock)
		for i := 1; i <= cfg.Capacity; i++ {
			if !admit(t, l, "sender") {
				t.Fatalf("request %d rejected within capacity", i)
			}
		}
		if admit(t, l, "sender") {
			t.Fatalf("request %d admitted over capacity", cfg.Capacity+1)
		}
	})

	t.Run("rejection_does_not_extend_window", func(t *testing.T) {
		clock := NewClock()
		l := factory(t, cfg, clock)
		for i := 0; i < cfg.Capacity; i++ {
			admit(t, l, "sender")
		}
		for i := 0; i < 5; i++ {
			clock.Advance(10 * time.Second)
			if admit(t, l, "sender") {
				t.Fatal("admitted while window is exhausted")
			}
		}
		clock.Advance(cfg.Window - 50*time.Second)
		if !admit(t, l, "sender") {
			t.Fatal("not admitted after the first window elapsed")
		}
	})

	t.Run("window_resets", func(t *testing.T) {
		clock := NewClock()
		l := factory(t, cfg, clock)
		for i := 0; i < cfg.Capacity; i++ {
			admit(t, l, "sender")
		}
		clock.Advance(cfg.Window - time.Millisecond)
		if admit(t, l, "sender") {
			t.Fatal("admitted before window end")
		}
		clock.Advance(time.Millisecond)
		for i := 1; i <= cfg.Capacity; i++ {
			if !admit(t, l, "sender") {
				t.Fatalf("request %d rejected after reset", i)
			}
		}
		if admit(t, l, "sender") {
			t.Fatal("admitted over capacity in second window")
		}
	})

	t.Run("keys_are_independent", func(t *testing.T) {
		clock := NewClock()
		l := factory(t, cfg, clock)
		for i := 0; i < cfg.Capacity; i++ {
			admit(t, l, "a")
		}
		if admit(t, l, "a") {
			t.Fatal("a admitted over capacity")
		}
		if !admit(t, l, "b") {
			t.Fatal("b rejected because of a")
		}
	})

	t.Run("fixed_window_boundary_burst", func(t *testing.T) {
		// Up to 2x capacity may pass across a window boundary.
		clock := NewClock()
		l := factory(t, cfg, clock)
		admit(t, l, "sender")
		clock.Advance(cfg.Window - time.Second)
		for i := 1; i < cfg.Capacity; i++ {
			if !admit(t, l, "sender") {
				t.Fatalf("late request %d rejected", i)
			}
		}
		clock.Advance(time.Second)
		for i := 1; i <= cfg.Capacity; i++ {
			if !admit(t, l, "sender") {
				t.Fatalf("post-boundary request %d rejected", i)
			}
		}
	})

	t.Run("concurrent_admits_exact", func(t *testing.T) {
		clock := NewClock()
		big := relay.RateLimitConfig{Capacity: 50, Window: time.Minute}
		l := factory(t, big, clock)

		var admitted atomic.Int64
		var wg sync.WaitGroup
		errs := make(chan error, 200)
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := l.Admit(ctx, "hot")
				if err != nil {
					errs <- err
					return
				}
				if ok {
					admitted.Add(1)
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("Admit: %v", err)
		}
		if got := admitted.Load(); got != int64(big.Capacity) {
			t.Fatalf("admitted %d of 200 concurrent requests, want %d", got, big.Capacity)
		}
	})

	t.Run("arbitrary_keys", func(t *testing.T) {
		clock := NewClock()
		l := factory(t, cfg, clock)
		for i, key := range []string{"", "00", "0x", "\x00\xff", fmt.Sprintf("%040x", 1)} {
			if !admit(t, l, key) {
				t.Fatalf("key %d rejected on first request", i)
			}
		}
	})
}

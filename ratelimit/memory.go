// Package ratelimit provides fixed-window implementations of
// relay.RateLimiter.
//
// A fixed window admits up to Capacity requests per key between a
// key's first request and Window later, then starts a fresh window.
// Unlike a sliding window it can admit up to 2×Capacity requests
// across a window boundary.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/blockberries/relay"
)

// Compile-time interface check.
var _ relay.RateLimiter = (*Memory)(nil)

// entry is one key's counter in the current window.
type entry struct {
	count   int
	resetAt time.Time
}

// Memory is an in-process fixed-window limiter. Counters are volatile
// and local to one process. Entries are never removed unless Sweep
// is called.
type Memory struct {
	capacity int
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// MemoryOption configures a Memory limiter.
type MemoryOption func(*Memory)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates a limiter admitting capacity requests per window.
// Non-positive values fall back to the relay defaults.
func NewMemory(cfg relay.RateLimitConfig, opts ...MemoryOption) *Memory {
	m := &Memory{
		capacity: cfg.Capacity,
		window:   cfg.Window,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
	if m.capacity <= 0 {
		m.capacity = relay.DefaultRateLimitCapacity
	}
	if m.window <= 0 {
		m.window = relay.DefaultRateLimitWindow
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Admit records a request for key and reports whether it is within
// the key's window capacity. A rejected request does not change the
// counter. Never returns an error.
func (m *Memory) Admit(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		m.entries[key] = &entry{count: 1, resetAt: now.Add(m.window)}
		return true, nil
	}
	if e.count >= m.capacity {
		return false, nil
	}
	e.count++
	return true, nil
}

// Sweep removes entries whose window has expired and returns how many
// were removed. Removing an expired entry does not change admission:
// the next request for that key starts a fresh window either way.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := m.Sweep()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}

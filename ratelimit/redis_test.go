package ratelimit_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/ratelimit"
	relaytest "github.com/blockberries/relay/testing"
)

// fakeRedis evaluates the admit script's semantics in memory, with
// key expiry driven by a test clock.
type fakeRedis struct {
	now func() time.Time

	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Time
	keys    []string
	err     error
}

func newFakeRedis(now func() time.Time) *fakeRedis {
	return &fakeRedis{
		now:     now,
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
	}
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx, "eval", script, len(keys))
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if !strings.Contains(script, `"PX"`) || len(keys) != 1 || len(args) != 2 {
		cmd.SetErr(fmt.Errorf("unexpected eval: keys=%v args=%v", keys, args))
		return cmd
	}
	capacity := toInt64(args[0])
	windowMS := toInt64(args[1])

	f.mu.Lock()
	defer f.mu.Unlock()

	key := keys[0]
	f.keys = append(f.keys, key)
	now := f.now()
	if exp, ok := f.expires[key]; ok && !now.Before(exp) {
		delete(f.counts, key)
		delete(f.expires, key)
	}
	count, ok := f.counts[key]
	switch {
	case !ok:
		f.counts[key] = 1
		f.expires[key] = now.Add(time.Duration(windowMS) * time.Millisecond)
		cmd.SetVal(int64(1))
	case count >= capacity:
		cmd.SetVal(int64(0))
	default:
		f.counts[key] = count + 1
		cmd.SetVal(int64(1))
	}
	return cmd
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	default:
		panic(fmt.Sprintf("unexpected arg type %T", v))
	}
}

func TestRedis_Compliance(t *testing.T) {
	relaytest.RunRateLimiterSuite(t, func(_ *testing.T, cfg relay.RateLimitConfig, clock *relaytest.Clock) relay.RateLimiter {
		return ratelimit.NewRedis(newFakeRedis(clock.Now), "relay:rl:", cfg)
	})
}

func TestRedis_KeyPrefix(t *testing.T) {
	fake := newFakeRedis(time.Now)
	l := ratelimit.NewRedis(fake, "relay:rl:", relay.RateLimitConfig{})
	if _, err := l.Admit(context.Background(), "abcd"); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(fake.keys) != 1 || fake.keys[0] != "relay:rl:abcd" {
		t.Fatalf("keys = %v, want [relay:rl:abcd]", fake.keys)
	}
}

func TestRedis_ErrorIsNotRejection(t *testing.T) {
	fake := newFakeRedis(time.Now)
	fake.err = errors.New("connection refused")
	l := ratelimit.NewRedis(fake, "", relay.RateLimitConfig{})

	ok, err := l.Admit(context.Background(), "k")
	if err == nil {
		t.Fatal("expected error")
	}
	if ok {
		t.Fatal("admitted on backend error")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("error %q does not wrap cause", err)
	}
}

func TestDialRedis_BadURL(t *testing.T) {
	if _, err := ratelimit.DialRedis(context.Background(), "http://not-redis"); err == nil {
		t.Fatal("expected parse error")
	}
}

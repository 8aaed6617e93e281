package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/blockberries/relay"
)

// Compile-time interface check.
var _ relay.RateLimiter = (*Redis)(nil)

// admitScript is the fixed-window check-and-increment, atomic on the
// Redis server. KEYS[1] is the counter; ARGV[1] the capacity; ARGV[2]
// the window in milliseconds. Returns 1 to admit, 0 to reject. A
// rejected request leaves the counter and its expiry unchanged.
const admitScript = `
local count = redis.call("GET", KEYS[1])
if not count then
  redis.call("SET", KEYS[1], 1, "PX", ARGV[2])
  return 1
end
if tonumber(count) >= tonumber(ARGV[1]) then
  return 0
end
redis.call("INCR", KEYS[1])
return 1
`

// Evaler is the subset of the Redis client the limiter uses.
// *redis.Client and *redis.ClusterClient satisfy it.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Redis is a fixed-window limiter backed by Redis, shared by every
// relay instance pointing at the same server. Counter expiry is
// handled by Redis, so no sweeping is needed.
type Redis struct {
	client   Evaler
	prefix   string
	capacity int
	window   time.Duration
}

// NewRedis creates a Redis-backed limiter. Keys are stored as
// prefix + sender key.
func NewRedis(client Evaler, prefix string, cfg relay.RateLimitConfig) *Redis {
	r := &Redis{
		client:   client,
		prefix:   prefix,
		capacity: cfg.Capacity,
		window:   cfg.Window,
	}
	if r.capacity <= 0 {
		r.capacity = relay.DefaultRateLimitCapacity
	}
	if r.window <= 0 {
		r.window = relay.DefaultRateLimitWindow
	}
	return r
}

// DialRedis parses a redis:// URL and returns a connected client.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Admit runs the check-and-increment for key on the server.
func (r *Redis) Admit(ctx context.Context, key string) (bool, error) {
	res, err := r.client.Eval(ctx, admitScript,
		[]string{r.prefix + key},
		r.capacity, r.window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return res == 1, nil
}

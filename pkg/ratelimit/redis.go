package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucket refills and consumes a bucket atomically.
// KEYS[1] = bucket key
// ARGV[1] = capacity
// ARGV[2] = window in milliseconds
// ARGV[3] = current unix time in milliseconds
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local rate = capacity / window

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
local retry_after = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
else
    retry_after = math.ceil((1 - tokens) / rate)
end

redis.call("HSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("PEXPIRE", key, window)

return {allowed, math.floor(tokens), retry_after}
`)

// Redis is a Limiter whose buckets live in Redis and are shared across processes.
type Redis struct {
	client   redis.Scripter
	prefix   string
	capacity int
	window   time.Duration
	now      func() time.Time
}

// NewRedis creates a limiter allowing capacity requests per window for each key.
func NewRedis(client redis.Scripter, prefix string, capacity int, window time.Duration) *Redis {
	return &Redis{
		client:   client,
		prefix:   prefix,
		capacity: capacity,
		window:   window,
		now:      time.Now,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := tokenBucket.Run(
		ctx, r.client,
		[]string{r.prefix + key},
		r.capacity, r.window.Milliseconds(), r.now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply", ErrUnavailable)
	}

	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

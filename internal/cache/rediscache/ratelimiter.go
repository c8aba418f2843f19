package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// fixedWindow starts the window on the first hit only; later hits in the
// same window leave the expiry alone.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RateLimiter counts calls per key in fixed windows shared by every replica.
type RateLimiter struct {
	c *redis.Client
}

// RateLimiter shares the cache connection pool.
func (r *RedisCache) RateLimiter() *RateLimiter {
	return &RateLimiter{c: r.c}
}

// Allow counts one call against key and reports whether it fits in limit,
// along with the count so far in the current window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	n, err := fixedWindow.Run(ctx, rl.c, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, errors.Wrapf(err, "rate limit %s", key)
	}
	return n <= limit, n, nil
}

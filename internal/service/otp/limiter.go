package otp

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Limiter caps how many codes may be issued per key within a window.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

const redisAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisLimiter struct {
	client redisEvaler
	window time.Duration
	limit  int
	prefix string
	logger zerolog.Logger
}

// NewRedisLimiter shares counters across instances. Redis errors fail open.
func NewRedisLimiter(client *redis.Client, window time.Duration, limit int, logger zerolog.Logger) Limiter {
	window, limit = normalize(window, limit)
	return &redisLimiter{
		client: client,
		window: window,
		limit:  limit,
		prefix: "otp:rl:",
		logger: logger,
	}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) bool {
	key = normalizeKey(key)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisAllowScript, []string{l.prefix + key}, seconds).Int()
	if err != nil {
		l.logger.Warn().Err(err).Msg("otp limiter unavailable, allowing")
		return true
	}
	return count <= l.limit
}

type memoryLimiter struct {
	counts *cache.Cache
	window time.Duration
	limit  int
}

// NewMemoryLimiter keeps counters in process, for single-instance deployments.
func NewMemoryLimiter(window time.Duration, limit int) Limiter {
	window, limit = normalize(window, limit)
	return &memoryLimiter{
		counts: cache.New(window, 2*window),
		window: window,
		limit:  limit,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) bool {
	key = normalizeKey(key)
	if key == "" {
		return false
	}
	if err := l.counts.Add(key, 1, l.window); err == nil {
		return true
	}
	count, err := l.counts.IncrementInt(key, 1)
	if err != nil {
		// expired between Add and IncrementInt
		return true
	}
	return count <= l.limit
}

type unlimited struct{}

// NewUnlimited never throttles.
func NewUnlimited() Limiter { return unlimited{} }

func (unlimited) Allow(context.Context, string) bool { return true }

func normalize(window time.Duration, limit int) (time.Duration, int) {
	if window <= 0 {
		window = time.Minute
	}
	if limit <= 0 {
		limit = 1
	}
	return window, limit
}

func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}

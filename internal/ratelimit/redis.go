package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings so a bad address fails at startup.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// windowScript increments the window counter and makes sure it expires, in
// one atomic step. It returns the count and the remaining window in ms.
var windowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares a fixed-window counter across instances.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	limit  int
	period time.Duration
	prefix string
	logger *slog.Logger
}

func NewRedisLimiter(rdb redis.UniversalClient, limit int, period time.Duration, prefix string, logger *slog.Logger) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{rdb: rdb, limit: limit, period: period, prefix: prefix, logger: logger}
}

// Allow fails open: when Redis is unreachable the request is allowed and the
// error is returned for logging.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	open := Decision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAfter: l.period}

	window := l.period.Milliseconds()
	if window < 1 {
		window = 1
	}
	res, err := windowScript.Run(ctx, l.rdb, []string{redisKey}, window).Int64Slice()
	if err != nil {
		return open, fmt.Errorf("count window %s: %w", redisKey, err)
	}
	if len(res) != 2 {
		return open, fmt.Errorf("count window %s: unexpected reply %v", redisKey, res)
	}

	return decide(l.limit, res[0], time.Duration(res[1])*time.Millisecond), nil
}

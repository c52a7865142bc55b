// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit provides a Redis-backed sliding window attempt limiter.

It is used for security-sensitive attempt budgets (login, OTP verification)
that must hold across every API replica. The per-IP flood guard in the
middleware package is process-local and unrelated.

Keys:

	rl:<scope>:<key>          sorted set of attempt timestamps (ms)
	rl:<scope>:<key>:counter  monotonic member suffix

Both keys carry a TTL equal to the window, so idle budgets vanish on their own.
*/
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/caseline/internal/platform/constants"
)

// slidingWindow trims the window, counts, and records the attempt atomically.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		local counter = redis.call('INCR', counter_key)
		redis.call('ZADD', key, now, now .. ':' .. counter)
		redis.call('PEXPIRE', key, window_ms)
		redis.call('PEXPIRE', counter_key, window_ms)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_after = 0
	if #oldest >= 2 then
		retry_after = tonumber(oldest[2]) + window_ms - now
	end
	return {0, 0, retry_after}
`)

// Result is the outcome of one [Limiter.Allow] call.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum one.
func (r Result) RetryAfterSeconds() int {
	seconds := int((r.RetryAfter + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Limiter allows at most limit attempts per key within a sliding window.
type Limiter struct {
	client *redis.Client
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
}

// New creates a limiter whose keys live under rl:<scope>:.
func New(client *redis.Client, scope string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		scope:  scope,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (limiter *Limiter) key(key string) string {
	return constants.RedisPrefixRateLimit + limiter.scope + ":" + key
}

// Allow records an attempt for key and reports whether it fits the budget.
// Rejected attempts are not recorded.
func (limiter *Limiter) Allow(context context.Context, key string) (Result, error) {
	now := limiter.now()
	redisKey := limiter.key(key)

	raw, err := slidingWindow.Run(context, limiter.client,
		[]string{redisKey, redisKey + ":counter"},
		now.UnixMilli(),
		now.Add(-limiter.window).UnixMilli(),
		limiter.limit,
		limiter.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit_script_failed: %w", err)
	}
	if len(raw) < 3 {
		return Result{}, fmt.Errorf("ratelimit_unexpected_reply: %v", raw)
	}

	result := Result{
		Allowed:   raw[0] == 1,
		Remaining: int(raw[1]),
	}
	if !result.Allowed && raw[2] > 0 {
		result.RetryAfter = time.Duration(raw[2]) * time.Millisecond
	}

	return result, nil
}

// Reset forgets every recorded attempt for key, e.g. after a successful login.
func (limiter *Limiter) Reset(context context.Context, key string) error {
	redisKey := limiter.key(key)
	if err := limiter.client.Del(context, redisKey, redisKey+":counter").Err(); err != nil {
		return fmt.Errorf("ratelimit_reset_failed: %w", err)
	}
	return nil
}

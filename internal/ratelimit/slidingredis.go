package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingScript trims expired events and admits a new one only while the window has room,
// so rejected requests do not push the window forward. Scores are unix microseconds and
// travel as strings; Lua would print them in exponent form.
var slidingScript = redis.NewScript(`
local key = KEYS[1]
local max = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[2])
local count = redis.call('ZCARD', key)
local allowed = 0
if count < max then
  redis.call('ZADD', key, ARGV[1], ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, ARGV[5])
local window = tonumber(ARGV[6])
local reset = tonumber(ARGV[1]) + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end
return {allowed, count, reset}
`)

// SlidingWindow is a Redis sorted-set limiter shared by every API replica.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

// Allow implements Limiter.
func (l SlidingWindow) Allow(ctx context.Context, key string, rate Rate) (Decision, error) {
	if l.Client == nil || rate.unlimited() {
		return allowAll(rate), nil
	}
	now := time.Now()
	ttl := rate.Window.Milliseconds()
	if ttl < 1 {
		ttl = 1
	}
	nowMicro := now.UnixMicro()
	windowMicro := rate.Window.Microseconds()
	res, err := slidingScript.Run(ctx, l.Client, []string{l.Prefix + key},
		strconv.FormatInt(nowMicro, 10),
		strconv.FormatInt(nowMicro-windowMicro, 10),
		rate.Max,
		uuid.NewString(),
		ttl,
		strconv.FormatInt(windowMicro, 10),
	).Int64Slice()
	if err != nil {
		return Decision{Reset: now.Add(rate.Window)}, err
	}
	remaining := rate.Max - int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   res[0] == 1,
		Remaining: remaining,
		Reset:     time.UnixMicro(res[2]),
	}, nil
}

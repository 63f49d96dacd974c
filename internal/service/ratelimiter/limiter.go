// Package ratelimiter throttles the AI-backed endpoints per user with token
// buckets kept in Redis.
package ratelimiter

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
)

// Buckets. Each user has one bucket of each kind.
const (
	BucketGenerate  = "generate"
	BucketInterview = "interview"
)

// Limiter decides whether subject may spend one unit from bucket.
type Limiter interface {
	Allow(ctx context.Context, bucket, subject string) (allowed bool, retryAfter time.Duration, err error)
}

// Rule allows Limit requests per Window, bursting up to Limit.
// A zero Rule disables the bucket.
type Rule struct {
	Limit  int64
	Window time.Duration
}

// PerHour is a Rule of n requests per hour.
func PerHour(n int) Rule {
	if n <= 0 {
		return Rule{}
	}
	return Rule{Limit: int64(n), Window: time.Hour}
}

func (r Rule) enabled() bool { return r.Limit > 0 && r.Window > 0 }

// refillPerSecond is the steady-state token rate.
func (r Rule) refillPerSecond() float64 {
	return float64(r.Limit) / r.Window.Seconds()
}

// ttl keeps an idle key until its bucket would be full again, plus a minute.
func (r Rule) ttl() int64 {
	return int64(math.Ceil(r.Window.Seconds())) + 60
}

// tokenBucket refills lazily on each call. Keys: 1. Args: limit, rate/s,
// now (s, fractional), ttl (s). Returns {allowed, tokens, retry_after_s};
// floats are strings because Redis truncates Lua numbers.
const tokenBucket = `
local limit = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or limit
local ts = tonumber(state[2]) or now
if now > ts then
  tokens = math.min(limit, tokens + (now - ts) * rate)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  wait = (1 - tokens) / rate
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", tostring(now))
redis.call("EXPIRE", KEYS[1], tonumber(ARGV[4]))
return { allowed, tostring(tokens), tostring(wait) }
`

// RedisLimiter implements Limiter with one Lua call per decision, so
// concurrent requests from the same user cannot overspend.
type RedisLimiter struct {
	rdb    redis.Scripter
	script *redis.Script
	now    func() time.Time

	mu    sync.RWMutex
	rules map[string]Rule
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter returns nil when rdb is nil; callers treat a nil Limiter as
// unlimited.
func NewRedisLimiter(rdb redis.Scripter, rules map[string]Rule) *RedisLimiter {
	if rdb == nil {
		return nil
	}
	l := &RedisLimiter{
		rdb:    rdb,
		script: redis.NewScript(tokenBucket),
		now:    time.Now,
		rules:  make(map[string]Rule, len(rules)),
	}
	for k, v := range rules {
		l.rules[k] = v
	}
	return l
}

// SetRule replaces bucket's rule.
func (l *RedisLimiter) SetRule(bucket string, r Rule) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.rules[bucket] = r
	l.mu.Unlock()
}

// Allow spends one token. Buckets without an enabled rule always allow.
// Redis errors allow the request and return the error for logging.
func (l *RedisLimiter) Allow(ctx context.Context, bucket, subject string) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	rule, ok := l.rules[bucket]
	l.mu.RUnlock()
	if !ok || !rule.enabled() {
		return true, 0, nil
	}

	now := float64(l.now().UnixMicro()) / 1e6
	res, err := l.script.Run(ctx, l.rdb, []string{Key(bucket, subject)},
		rule.Limit, rule.refillPerSecond(), now, rule.ttl()).Slice()
	if err != nil {
		observability.ObserveRateLimit(bucket, "error")
		return true, 0, fmt.Errorf("op=ratelimiter.Allow: %w", err)
	}
	allowed, wait, err := parseReply(res)
	if err != nil {
		observability.ObserveRateLimit(bucket, "error")
		return true, 0, fmt.Errorf("op=ratelimiter.Allow: %w", err)
	}
	if !allowed {
		observability.ObserveRateLimit(bucket, "deny")
		return false, wait, nil
	}
	observability.ObserveRateLimit(bucket, "allow")
	return true, 0, nil
}

// Key is the Redis key holding subject's bucket state.
func Key(bucket, subject string) string {
	return "vericv:rl:" + bucket + ":" + subject
}

func parseReply(res []any) (bool, time.Duration, error) {
	if len(res) != 3 {
		return false, 0, fmt.Errorf("unexpected script reply of %d values", len(res))
	}
	flag, ok := res[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected allowed flag %T", res[0])
	}
	waitStr, _ := res[2].(string)
	wait, err := strconv.ParseFloat(waitStr, 64)
	if err != nil || math.IsNaN(wait) || wait < 0 {
		wait = 0
	}
	// drop float noise before rounding up to whole seconds
	wait = math.Round(wait*1000) / 1000
	return flag == 1, time.Duration(math.Ceil(wait)) * time.Second, nil
}

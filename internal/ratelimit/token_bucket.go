package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// tokenBucketScript refills KEYS[1] from server time and takes one token.
// Tokens are returned as a string so the fractional part survives the reply.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = (clock[1] * 1000) + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

var (
	ErrLimiterNotConfigured = errors.New("rate limiter not configured")
	ErrInvalidLimit         = errors.New("rate limit must be positive")
	ErrEmptyKey             = errors.New("rate limiter key is empty")
	errInvalidReply         = errors.New("invalid rate limit script reply")
)

// Limit is a sustained request rate with a burst allowance.
type Limit struct {
	Rate  float64
	Burst int
}

func (l Limit) Validate() error {
	if l.Rate <= 0 || l.Burst <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

// ttl keeps an idle bucket around for twice the time it takes to refill.
func (l Limit) ttl() time.Duration {
	if l.Validate() != nil {
		return time.Second
	}
	seconds := math.Ceil(float64(l.Burst) / l.Rate * 2)
	return time.Duration(math.Max(seconds, 1)) * time.Second
}

// TokenBucket is a Redis-backed limiter shared by every replica.
type TokenBucket struct {
	client redis.Scripter
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, limit Limit) (*RateLimitResult, error) {
	if t == nil || t.client == nil {
		return nil, ErrLimiterNotConfigured
	}
	if key == "" {
		return nil, ErrEmptyKey
	}
	if err := limit.Validate(); err != nil {
		return nil, err
	}

	reply, err := t.script.Run(ctx, t.client, []string{key},
		limit.Rate,
		limit.Burst,
		limit.ttl().Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("token bucket %s: %w", key, err)
	}
	return parseBucketReply(reply, limit)
}

func parseBucketReply(reply []interface{}, limit Limit) (*RateLimitResult, error) {
	if len(reply) < 2 {
		return nil, errInvalidReply
	}
	allowed, ok := reply[0].(int64)
	if !ok {
		return nil, errInvalidReply
	}
	tokens, err := replyFloat(reply[1])
	if err != nil {
		return nil, err
	}

	result := &RateLimitResult{
		Allowed:   allowed == 1,
		Limit:     limit.Burst,
		Remaining: int(math.Floor(tokens)),
	}
	if !result.Allowed && tokens < 1 {
		result.RetryAfter = time.Duration((1 - tokens) / limit.Rate * float64(time.Second))
	}
	return result, nil
}

func replyFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case int64:
		return float64(val), nil
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errInvalidReply, err)
		}
		return parsed, nil
	default:
		return 0, errInvalidReply
	}
}

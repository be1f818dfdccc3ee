package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/revenuemetrics/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyHook answers commands in process so no redis server is needed.
type replyHook struct {
	mu    sync.Mutex
	reply interface{}
	err   error
	calls [][]interface{}
}

func (h *replyHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *replyHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *replyHook) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.calls = append(h.calls, cmd.Args())
		if h.err != nil {
			return h.err
		}
		switch c := cmd.(type) {
		case *redis.Cmd:
			c.SetVal(h.reply)
		case *redis.BoolCmd:
			c.SetVal(h.reply.(bool))
		}
		return nil
	}
}

func (h *replyHook) lastCall(t *testing.T) []interface{} {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.calls)
	return h.calls[len(h.calls)-1]
}

func newHookedClient(t *testing.T, hook *replyHook) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	client.AddHook(hook)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewAPILimiterDisabled(t *testing.T) {
	limiter, err := NewAPILimiter(config.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNewAPILimiterValidatesConfig(t *testing.T) {
	client := newHookedClient(t, &replyHook{})

	_, err := NewAPILimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0, Burst: 5}}, client)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = NewAPILimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 5}}, nil)
	require.Error(t, err)

	limiter, err := NewAPILimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 5}}, client)
	require.NoError(t, err)
	assert.True(t, limiter.Enabled())
}

func TestAPILimiterAllowsWithinBurst(t *testing.T) {
	hook := &replyHook{reply: []interface{}{int64(1), "9"}}
	limiter, err := newAPILimiter(newHookedClient(t, hook), Limit{Rate: 1, Burst: 10})
	require.NoError(t, err)

	res, err := limiter.Allow(context.Background(), " 10.0.0.1 ")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, 9, res.Remaining)
	assert.Zero(t, res.RetryAfter)

	call := hook.lastCall(t)
	require.Len(t, call, 7)
	assert.Equal(t, "evalsha", call[0])
	assert.Equal(t, "revenuemetrics:ratelimit:api:10.0.0.1", call[3])
	assert.Equal(t, int64(20000), call[6])
}

func TestAPILimiterDeniesWithRetryAfter(t *testing.T) {
	hook := &replyHook{reply: []interface{}{int64(0), "0.25"}}
	limiter, err := newAPILimiter(newHookedClient(t, hook), Limit{Rate: 1, Burst: 10})
	require.NoError(t, err)

	res, err := limiter.Allow(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 750*time.Millisecond, res.RetryAfter)
	assert.Equal(t, "revenuemetrics:ratelimit:api:anonymous", hook.lastCall(t)[3])
}

func TestTokenBucketSurfacesRedisErrors(t *testing.T) {
	hook := &replyHook{err: errors.New("connection refused")}
	bucket := NewTokenBucket(newHookedClient(t, hook))

	_, err := bucket.Allow(context.Background(), "k", Limit{Rate: 1, Burst: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Allow(context.Background(), "k", Limit{Rate: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrLimiterNotConfigured)

	bucket := NewTokenBucket(newHookedClient(t, &replyHook{}))
	_, err = bucket.Allow(context.Background(), "", Limit{Rate: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = bucket.Allow(context.Background(), "k", Limit{Rate: 1})
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestParseBucketReply(t *testing.T) {
	limit := Limit{Rate: 2, Burst: 4}

	res, err := parseBucketReply([]interface{}{int64(1), int64(3)}, limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)

	res, err = parseBucketReply([]interface{}{int64(0), "0"}, limit)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)

	for _, reply := range [][]interface{}{
		nil,
		{int64(1)},
		{"1", "2"},
		{int64(1), "many"},
		{int64(1), 2.5},
	} {
		_, err := parseBucketReply(reply, limit)
		assert.ErrorIs(t, err, errInvalidReply)
	}
}

func TestLimitTTL(t *testing.T) {
	assert.Equal(t, time.Second, Limit{Burst: 10}.ttl())
	assert.Equal(t, 20*time.Second, Limit{Rate: 1, Burst: 10}.ttl())
	assert.Equal(t, time.Second, Limit{Rate: 100, Burst: 1}.ttl())
}

func TestLockerRejectsInvalidInput(t *testing.T) {
	var nilLocker *Locker
	_, _, err := nilLocker.TryLock(context.Background(), "k", time.Second)
	require.Error(t, err)
	require.NoError(t, nilLocker.Release(context.Background(), "k", "token"))

	locker := NewLocker(newHookedClient(t, &replyHook{}))
	_, _, err = locker.TryLock(context.Background(), "", time.Second)
	require.Error(t, err)
	_, _, err = locker.TryLock(context.Background(), "k", 0)
	require.Error(t, err)
}

func TestLockerAcquireAndRelease(t *testing.T) {
	hook := &replyHook{reply: true}
	locker := NewLocker(newHookedClient(t, hook))

	token, ok, err := locker.TryLock(context.Background(), "snapshot", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	assert.Equal(t, "revenuemetrics:lock:snapshot", hook.lastCall(t)[1])

	hook.reply = int64(1)
	require.NoError(t, locker.Release(context.Background(), "snapshot", token))
	call := hook.lastCall(t)
	assert.Equal(t, "evalsha", call[0])
	assert.Equal(t, "revenuemetrics:lock:snapshot", call[3])
	assert.Equal(t, token, call[4])
}

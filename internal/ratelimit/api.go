package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/revenuemetrics/internal/config"
)

const keyMetricsAPIClient = "revenuemetrics:ratelimit:api:%s"

// APILimiter throttles metric requests per client key.
type APILimiter struct {
	bucket *TokenBucket
	limit  Limit
}

// NewAPILimiter returns nil when rate limiting is disabled.
func NewAPILimiter(cfg config.Config, client *redis.Client) (*APILimiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("api rate limit requires a redis client")
	}
	return newAPILimiter(client, Limit{
		Rate:  cfg.RateLimit.RequestsPerSecond,
		Burst: cfg.RateLimit.Burst,
	})
}

func newAPILimiter(client redis.Scripter, limit Limit) (*APILimiter, error) {
	if err := limit.Validate(); err != nil {
		return nil, fmt.Errorf("api rate limit: %w", err)
	}
	return &APILimiter{bucket: NewTokenBucket(client), limit: limit}, nil
}

func (l *APILimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token for the client.
func (l *APILimiter) Allow(ctx context.Context, clientKey string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, apiClientKey(clientKey), l.limit)
}

func apiClientKey(clientKey string) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		clientKey = "anonymous"
	}
	return fmt.Sprintf(keyMetricsAPIClient, clientKey)
}

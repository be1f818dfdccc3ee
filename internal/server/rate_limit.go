package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/revenuemetrics/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/revenuemetrics/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonClientRate = "client-rate"

// APIRateLimit throttles metric requests per client IP. Limiter failures fail open.
func (s *Server) APIRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.apiLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := c.FullPath()
		result, err := s.apiLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("api rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.FromContext(ctx).Warn("api rate limit exceeded", zap.String("endpoint", endpoint))
			s.obsMetrics.RecordRateLimit(ctx, endpoint, obsmetrics.RateLimitDenied, rateLimitReasonClientRate)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}

		s.obsMetrics.RecordRateLimit(ctx, endpoint, obsmetrics.RateLimitAllowed, "")
		c.Next()
	}
}

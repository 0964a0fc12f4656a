package server

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/givebridge/internal/ratelimit"
	"github.com/smallbiznis/givebridge/pkg/telemetry"
	"go.uber.org/zap"
)

type deliveryLimiter interface {
	Allow(ctx context.Context, provider string) (*ratelimit.RateLimitResult, error)
}

// MetricsMiddleware records request counts and latency per route.
func MetricsMiddleware(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.ObserveAPIRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// WebhookRateLimit rejects deliveries over the per-provider budget with 429.
// When redis cannot answer the delivery is admitted.
func WebhookRateLimit(limiter deliveryLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		provider := c.Param("provider")
		res, err := limiter.Allow(c.Request.Context(), provider)
		if err != nil {
			log.Warn("webhook rate limit check failed",
				zap.String("provider", provider),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if res.Allowed {
			c.Next()
			return
		}

		if res.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
			Type:    "rate_limited",
			Message: "too many webhook deliveries",
		}})
	}
}

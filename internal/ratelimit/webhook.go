package ratelimit

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/givebridge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const webhookKeyPrefix = "givebridge:ratelimit:webhook:"

type WebhookLimiterParams struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Client redis.UniversalClient `optional:"true"`
}

// WebhookLimiter throttles inbound deliveries per provider so a retry storm
// from one provider cannot starve the others.
type WebhookLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewWebhookLimiter returns nil when no rate is configured or redis is
// unavailable; a nil limiter admits every delivery.
func NewWebhookLimiter(p WebhookLimiterParams) *WebhookLimiter {
	log := p.Log.Named("ratelimit.webhook")
	if p.Cfg.WebhookRateLimit <= 0 {
		return nil
	}
	bucket := NewTokenBucket(p.Client)
	if bucket == nil {
		log.Warn("redis not configured; webhook rate limit disabled",
			zap.Float64("rate", p.Cfg.WebhookRateLimit),
		)
		return nil
	}
	burst := p.Cfg.WebhookRateBurst
	if burst <= 0 {
		burst = 1
	}
	log.Info("webhook rate limit enabled",
		zap.Float64("rate", p.Cfg.WebhookRateLimit),
		zap.Int("burst", burst),
	)
	return &WebhookLimiter{bucket: bucket, rate: p.Cfg.WebhookRateLimit, burst: burst}
}

func (l *WebhookLimiter) Allow(ctx context.Context, provider string) (*RateLimitResult, error) {
	if l == nil {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, WebhookKey(provider), l.rate, l.burst)
}

func WebhookKey(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = "unknown"
	}
	return webhookKeyPrefix + provider
}

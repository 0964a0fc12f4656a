package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/givebridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTokenBucket_ValidatesArguments(t *testing.T) {
	assert.Nil(t, NewTokenBucket(nil))

	var nilBucket *TokenBucket
	res, err := nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
	assert.False(t, res.Allowed)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	bucket := NewTokenBucket(client)
	require.NotNil(t, bucket)

	for _, tc := range []struct {
		name  string
		key   string
		rate  float64
		burst int
	}{
		{name: "empty key", key: "", rate: 1, burst: 1},
		{name: "zero rate", key: "k", rate: 0, burst: 1},
		{name: "zero burst", key: "k", rate: 1, burst: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := bucket.Allow(context.Background(), tc.key, tc.rate, tc.burst)
			assert.Error(t, err)
			assert.False(t, res.Allowed)
		})
	}
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 10))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, 40*time.Second, defaultBucketTTL(1, 20))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(int64(3)))
	assert.Equal(t, int64(2), castToInt(2.9))
	assert.Equal(t, int64(0), castToInt("x"))
	assert.Equal(t, 1.5, castToFloat("1.5"))
	assert.Equal(t, 0.0, castToFloat("nope"))
	assert.Equal(t, 4.0, castToFloat(int64(4)))
}

func TestNewWebhookLimiter(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	disabled := NewWebhookLimiter(WebhookLimiterParams{
		Cfg:    config.Config{WebhookRateBurst: 5},
		Log:    zap.NewNop(),
		Client: client,
	})
	assert.Nil(t, disabled)

	noRedis := NewWebhookLimiter(WebhookLimiterParams{
		Cfg: config.Config{WebhookRateLimit: 2, WebhookRateBurst: 5},
		Log: zap.NewNop(),
	})
	assert.Nil(t, noRedis)

	limiter := NewWebhookLimiter(WebhookLimiterParams{
		Cfg:    config.Config{WebhookRateLimit: 2},
		Log:    zap.NewNop(),
		Client: client,
	})
	require.NotNil(t, limiter)
	assert.Equal(t, 1, limiter.burst)
}

func TestNilWebhookLimiterAdmits(t *testing.T) {
	var limiter *WebhookLimiter
	res, err := limiter.Allow(context.Background(), "stripe")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestWebhookKey(t *testing.T) {
	assert.Equal(t, "givebridge:ratelimit:webhook:stripe", WebhookKey(" Stripe "))
	assert.Equal(t, "givebridge:ratelimit:webhook:unknown", WebhookKey(""))
}

package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/givebridge/internal/config"
	obsmetrics "github.com/smallbiznis/givebridge/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/internal/payment/lock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultLockTTL = 30 * time.Second

// Locker serialises handling of one delivery across replicas.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Gateway    paymentdomain.Gateway
	Locker     *lock.Locker        `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Service is the inbound webhook entry point. It checks that the delivery
// belongs to the active gateway and lets the adapter verify, resolve and
// dispatch it.
type Service struct {
	log        *zap.Logger
	gateway    paymentdomain.Gateway
	locker     Locker
	lockTTL    time.Duration
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	svc := &Service{
		log:        p.Log.Named("payment.webhook"),
		gateway:    p.Gateway,
		lockTTL:    p.Cfg.WebhookLockTTL,
		obsMetrics: p.ObsMetrics,
	}
	if p.Locker != nil {
		svc.locker = p.Locker
	}
	if svc.lockTTL <= 0 {
		svc.lockTTL = defaultLockTTL
	}
	return svc
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.gateway == nil || s.gateway.Name() != provider {
		return paymentdomain.ErrProviderNotFound
	}
	if len(payload) == 0 {
		return paymentdomain.ErrInvalidPayload
	}

	log := s.log.With(zap.String("provider", provider))
	s.transition(ctx, log, provider, paymentdomain.WebhookReceived)

	if s.locker != nil {
		key := lock.DeliveryKey(provider, payload)
		token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
		switch {
		case err != nil:
			log.Warn("webhook lock unavailable, handling without it", zap.Error(err))
		case !ok:
			log.Info("webhook delivery already in flight")
			return paymentdomain.ErrWebhookInFlight
		default:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn("failed to release webhook lock", zap.Error(err))
				}
			}()
		}
	}

	err := s.gateway.HandleWebhook(ctx, payload, headers)
	switch {
	case err == nil:
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		log.Info("webhook redelivery acknowledged")
	default:
		log.Warn("webhook rejected", zap.Error(err))
		s.transition(ctx, log, provider, paymentdomain.WebhookRejected)
		return err
	}

	s.transition(ctx, log, provider, paymentdomain.WebhookAcknowledged)
	return nil
}

func (s *Service) transition(ctx context.Context, log *zap.Logger, provider string, state paymentdomain.WebhookState) {
	log.Debug("webhook state", zap.String("state", string(state)))
	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhook(ctx, provider, string(state))
	}
}

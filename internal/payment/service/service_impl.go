package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/givebridge/internal/config"
	obsmetrics "github.com/smallbiznis/givebridge/internal/observability/metrics"
	"github.com/smallbiznis/givebridge/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	opCreate          = "create_payment_intent"
	opCapture         = "capture_payment"
	opRefund          = "refund_payment"
	opGetTransaction  = "get_transaction"
	opHandleWebhook   = "handle_webhook"
	opValidateConfig  = "validate_configuration"
	outcomeSuccess    = "success"
	outcomePending    = "pending"
	outcomeFailure    = "failure"
	outcomeError      = "error"
	outcomeRejected   = "rejected"
	outcomeDuplicated = "duplicate"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.PaymentConfig
	Registry   *adapters.Registry
	Dispatcher paymentdomain.EventDispatcher
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Service is the Gateway the rest of the application talks to. It selects
// the configured adapter once and wraps every call with request validation,
// logging, tracing and metrics.
type Service struct {
	gateway    paymentdomain.Gateway
	log        *zap.Logger
	tracer     trace.Tracer
	obsMetrics *obsmetrics.Metrics
}

var _ paymentdomain.Gateway = (*Service)(nil)

func NewService(p Params) (*Service, error) {
	log := p.Log.Named("payment.service")
	gateway, err := p.Registry.NewAdapter(p.Cfg.Gateway, paymentdomain.AdapterConfig{
		Mode:              paymentdomain.Mode(p.Cfg.Mode),
		Credentials:       p.Cfg.Credentials(),
		DescriptionPrefix: p.Cfg.DescriptionPrefix,
		HTTPTimeout:       p.Cfg.HTTPTimeout,
		BaseURL:           p.Cfg.BaseURL,
		Dispatcher:        p.Dispatcher,
		Logger:            p.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("payment gateway %q: %w", p.Cfg.Gateway, err)
	}
	log.Info("payment gateway selected",
		zap.String("provider", gateway.Name()),
		zap.String("mode", p.Cfg.Mode),
	)
	return New(gateway, log, p.ObsMetrics), nil
}

// New wraps an already built gateway.
func New(gateway paymentdomain.Gateway, log *zap.Logger, m *obsmetrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		gateway:    gateway,
		log:        log,
		tracer:     otel.Tracer("givebridge/payment"),
		obsMetrics: m,
	}
}

func (s *Service) Name() string {
	return s.gateway.Name()
}

func (s *Service) Supports(method string) bool {
	return s.gateway.Supports(method)
}

func (s *Service) SupportedCurrencies() []string {
	return s.gateway.SupportedCurrencies()
}

func (s *Service) CreatePaymentIntent(ctx context.Context, intent paymentdomain.PaymentIntent) (paymentdomain.PaymentResult, error) {
	if err := intent.Validate(); err != nil {
		return s.reject(ctx, opCreate, err), nil
	}
	return s.call(ctx, opCreate, []attribute.KeyValue{
		attribute.String("donation.id", intent.DonationID),
		attribute.String("payment.method", intent.PaymentMethod),
		attribute.String("payment.currency", intent.Amount.Currency),
		attribute.Bool("payment.capture_immediately", intent.CaptureImmediately),
	}, func(ctx context.Context) (paymentdomain.PaymentResult, error) {
		return s.gateway.CreatePaymentIntent(ctx, intent)
	})
}

func (s *Service) CapturePayment(ctx context.Context, intentID string) (paymentdomain.PaymentResult, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return s.reject(ctx, opCapture, &paymentdomain.ValidationError{Field: "IntentID", Tag: "required"}), nil
	}
	return s.call(ctx, opCapture, []attribute.KeyValue{
		attribute.String("payment.intent_id", intentID),
	}, func(ctx context.Context) (paymentdomain.PaymentResult, error) {
		return s.gateway.CapturePayment(ctx, intentID)
	})
}

func (s *Service) RefundPayment(ctx context.Context, req paymentdomain.RefundRequest) (paymentdomain.PaymentResult, error) {
	if err := req.Validate(); err != nil {
		return s.reject(ctx, opRefund, err), nil
	}
	return s.call(ctx, opRefund, []attribute.KeyValue{
		attribute.String("payment.transaction_id", req.TransactionID),
		attribute.String("payment.currency", req.Currency),
	}, func(ctx context.Context) (paymentdomain.PaymentResult, error) {
		return s.gateway.RefundPayment(ctx, req)
	})
}

func (s *Service) GetTransaction(ctx context.Context, transactionID string) (paymentdomain.PaymentResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return s.reject(ctx, opGetTransaction, &paymentdomain.ValidationError{Field: "TransactionID", Tag: "required"}), nil
	}
	return s.call(ctx, opGetTransaction, []attribute.KeyValue{
		attribute.String("payment.transaction_id", transactionID),
	}, func(ctx context.Context) (paymentdomain.PaymentResult, error) {
		return s.gateway.GetTransaction(ctx, transactionID)
	})
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	ctx, span := s.tracer.Start(ctx, "payment."+opHandleWebhook, trace.WithAttributes(
		attribute.String("payment.provider", s.gateway.Name()),
	))
	defer span.End()

	start := time.Now()
	err := s.gateway.HandleWebhook(ctx, payload, headers)

	outcome := outcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		outcome = outcomeDuplicated
	case errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		outcome = outcomeRejected
		span.SetStatus(codes.Error, "webhook rejected")
	default:
		outcome = outcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook handling failed")
	}
	s.obsMetrics.RecordGatewayCall(ctx, s.gateway.Name(), opHandleWebhook, outcome, time.Since(start))
	return err
}

func (s *Service) ValidateConfiguration(ctx context.Context) bool {
	start := time.Now()
	ok := s.gateway.ValidateConfiguration(ctx)
	outcome := outcomeSuccess
	if !ok {
		outcome = outcomeFailure
		s.log.Warn("payment gateway configuration rejected", zap.String("provider", s.gateway.Name()))
	}
	s.obsMetrics.RecordGatewayCall(ctx, s.gateway.Name(), opValidateConfig, outcome, time.Since(start))
	return ok
}

// Ready reports whether the gateway accepts its credentials.
func (s *Service) Ready(ctx context.Context) error {
	if !s.ValidateConfiguration(ctx) {
		return fmt.Errorf("%s: %w", s.gateway.Name(), paymentdomain.ErrInvalidConfig)
	}
	return nil
}

func (s *Service) call(
	ctx context.Context,
	op string,
	attrs []attribute.KeyValue,
	fn func(ctx context.Context) (paymentdomain.PaymentResult, error),
) (paymentdomain.PaymentResult, error) {
	provider := s.gateway.Name()
	ctx, span := s.tracer.Start(ctx, "payment."+op, trace.WithAttributes(
		append([]attribute.KeyValue{attribute.String("payment.provider", provider)}, attrs...)...,
	))
	defer span.End()

	start := time.Now()
	result, err := fn(ctx)
	duration := time.Since(start)

	log := s.log.With(
		zap.String("provider", provider),
		zap.String("operation", op),
		zap.Duration("duration", duration),
	)
	if err != nil {
		s.obsMetrics.RecordGatewayCall(ctx, provider, op, outcomeError, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(paymentdomain.CategoryOf(err)))
		log.Error("payment gateway call failed",
			zap.String("category", string(paymentdomain.CategoryOf(err))),
			zap.Error(err),
		)
		return paymentdomain.PaymentResult{}, err
	}

	outcome := outcomeOf(result)
	s.obsMetrics.RecordGatewayCall(ctx, provider, op, outcome, duration)
	span.SetAttributes(
		attribute.String("payment.status", result.Status.String()),
		attribute.String("payment.transaction_id", result.TransactionID),
	)
	if outcome == outcomeFailure {
		span.SetAttributes(attribute.String("payment.error_code", result.ErrorCode))
		log.Info("payment gateway reported failure",
			zap.String("error_code", result.ErrorCode),
			zap.String("error_message", result.ErrorMessage),
		)
		return result, nil
	}
	log.Debug("payment gateway call completed",
		zap.String("transaction_id", result.TransactionID),
		zap.String("status", result.Status.String()),
	)
	return result, nil
}

func (s *Service) reject(ctx context.Context, op string, err error) paymentdomain.PaymentResult {
	s.obsMetrics.RecordGatewayCall(ctx, s.gateway.Name(), op, outcomeFailure, 0)
	s.log.Info("payment request rejected before reaching provider",
		zap.String("operation", op),
		zap.Error(err),
	)
	return paymentdomain.Failure(err.Error(), paymentdomain.CodeInvalidRequest, nil)
}

func outcomeOf(result paymentdomain.PaymentResult) string {
	switch {
	case !result.Success:
		return outcomeFailure
	case result.Status.IsTerminal():
		return outcomeSuccess
	default:
		return outcomePending
	}
}

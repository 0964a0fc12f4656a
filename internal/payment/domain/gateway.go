package domain

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Gateway is the single contract every payment provider adapter satisfies.
//
// Business outcomes (declines, provider-side validation, over-refunds) come
// back as a PaymentResult with Success=false. A returned error always means
// the provider could not be reached or answered unintelligibly.
type Gateway interface {
	Name() string
	CreatePaymentIntent(ctx context.Context, intent PaymentIntent) (PaymentResult, error)
	// CapturePayment is idempotent: an already captured intent yields a
	// success result without a second capture request.
	CapturePayment(ctx context.Context, intentID string) (PaymentResult, error)
	RefundPayment(ctx context.Context, req RefundRequest) (PaymentResult, error)
	GetTransaction(ctx context.Context, transactionID string) (PaymentResult, error)
	// HandleWebhook verifies the raw delivery before anything else and
	// returns ErrInvalidSignature when verification fails.
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error
	Supports(method string) bool
	SupportedCurrencies() []string
	// ValidateConfiguration performs a cheap authenticated read. It never
	// mutates provider state and never returns an error.
	ValidateConfiguration(ctx context.Context) bool
}

type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
)

const DefaultHTTPTimeout = 30 * time.Second

type AdapterConfig struct {
	Provider          string
	Mode              Mode
	Credentials       map[string]string
	DescriptionPrefix string
	HTTPTimeout       time.Duration
	// BaseURL overrides the provider endpoint derived from Mode.
	BaseURL    string
	Dispatcher EventDispatcher
	Logger     *zap.Logger
}

// Credential returns a trimmed credential value.
func (c AdapterConfig) Credential(key string) string {
	if c.Credentials == nil {
		return ""
	}
	return strings.TrimSpace(c.Credentials[key])
}

func (c AdapterConfig) Timeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.HTTPTimeout
}

func (c AdapterConfig) Log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Gateway, error)
}

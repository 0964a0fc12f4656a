// Package mock is a deterministic in-memory gateway for local development and
// tests. The payment method or payment method id picks the simulated outcome.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/money"
	"go.uber.org/zap"
)

const (
	providerName         = "mock"
	defaultWebhookSecret = "mock_whsec"
	authenticateURL      = "https://mock.givebridge.test/authenticate/"
)

// Simulated outcomes, matched against PaymentMethodID and then PaymentMethod.
const (
	OutcomeDecline           = "decline"
	OutcomeCardDeclined      = "pm_card_declined"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeRequiresAction    = "requires_action"
	OutcomeTimeout           = "timeout"
)

var idNamespace = uuid.MustParse("0d8c5a3e-8a6f-4f55-8f39-7f3f2b6f1c42")

var supportedCurrencies = []string{"USD", "EUR", "GBP", "CHF", "CAD", "AUD", "JPY", "PLN", "SEK"}

var _ paymentdomain.Gateway = (*Adapter)(nil)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	return New(cfg), nil
}

// New builds a mock adapter. No credentials are required; webhook_secret
// defaults to a fixed value.
func New(cfg paymentdomain.AdapterConfig) *Adapter {
	secret := cfg.Credential("webhook_secret")
	if secret == "" {
		secret = defaultWebhookSecret
	}
	return &Adapter{
		webhookSecret: secret,
		dispatcher:    cfg.Dispatcher,
		log:           cfg.Log(),
		payments:      map[string]*payment{},
		refunds:       map[string]paymentdomain.PaymentResult{},
		replays:       map[string]paymentdomain.PaymentResult{},
		now:           time.Now,
	}
}

type payment struct {
	id         string
	donationID string
	status     paymentdomain.PaymentStatus
	amount     money.Money
	refunded   decimal.Decimal
	metadata   map[string]any
	createdAt  time.Time
}

type Adapter struct {
	webhookSecret string
	dispatcher    paymentdomain.EventDispatcher
	log           *zap.Logger
	now           func() time.Time

	mu       sync.Mutex
	payments map[string]*payment
	refunds  map[string]paymentdomain.PaymentResult
	replays  map[string]paymentdomain.PaymentResult
	captures int
}

func (a *Adapter) Name() string {
	return providerName
}

// Supports accepts every logical method.
func (a *Adapter) Supports(method string) bool {
	return strings.TrimSpace(method) != ""
}

func (a *Adapter) SupportedCurrencies() []string {
	return append([]string(nil), supportedCurrencies...)
}

func (a *Adapter) ValidateConfiguration(context.Context) bool {
	return true
}

// Captures counts capture mutations performed so far.
func (a *Adapter) Captures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.captures
}

func (a *Adapter) CreatePaymentIntent(ctx context.Context, intent paymentdomain.PaymentIntent) (paymentdomain.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return paymentdomain.PaymentResult{}, paymentdomain.NewIntegrationError(providerName, "create_payment_intent", paymentdomain.TransportCategory(err), err)
	}
	if !supportsCurrency(intent.Amount.Currency) {
		return paymentdomain.Failure("currency "+intent.Amount.Currency+" is not supported", paymentdomain.CodeUnsupportedCurrency, nil), nil
	}

	key := intent.Key(paymentdomain.OpCreate)

	a.mu.Lock()
	defer a.mu.Unlock()

	if replay, ok := a.replays[key]; ok {
		return replay, nil
	}

	id := "mock_pi_" + uuid.NewSHA1(idNamespace, []byte(key)).String()
	gatewayData := map[string]any{"simulated": true, "idempotency_key": key}

	var result paymentdomain.PaymentResult
	switch simulatedOutcome(intent) {
	case OutcomeTimeout:
		return paymentdomain.PaymentResult{}, paymentdomain.NewIntegrationError(providerName, "create_payment_intent", paymentdomain.CategoryTimeout, context.DeadlineExceeded)
	case OutcomeDecline, OutcomeCardDeclined:
		result = paymentdomain.Failure("Your card was declined.", paymentdomain.CodeCardDeclined, gatewayData)
	case OutcomeInsufficientFunds:
		result = paymentdomain.Failure("Your card has insufficient funds.", paymentdomain.CodeInsufficientFunds, gatewayData)
	case OutcomeRequiresAction:
		a.store(id, intent, paymentdomain.StatusRequiresAction)
		result = paymentdomain.Pending(paymentdomain.Details{
			TransactionID: id,
			IntentID:      id,
			Status:        paymentdomain.StatusRequiresAction,
			Amount:        intent.Amount,
			RedirectURL:   authenticateURL + id,
			GatewayData:   gatewayData,
			Metadata:      intent.Metadata,
		})
	default:
		status := paymentdomain.StatusProcessing
		if intent.CaptureImmediately {
			status = paymentdomain.StatusCompleted
		}
		a.store(id, intent, status)
		result = paymentdomain.FromStatus(paymentdomain.Details{
			TransactionID: id,
			IntentID:      id,
			Status:        status,
			Amount:        intent.Amount,
			GatewayData:   gatewayData,
			Metadata:      intent.Metadata,
		}, "", "")
	}

	a.replays[key] = result
	a.log.Debug("mock payment intent created",
		zap.String("transaction_id", result.TransactionID),
		zap.String("status", result.Status.String()),
		zap.String("error_code", result.ErrorCode),
	)
	return result, nil
}

func simulatedOutcome(intent paymentdomain.PaymentIntent) string {
	for _, candidate := range []string{intent.PaymentMethodID, intent.PaymentMethod} {
		switch outcome := strings.ToLower(strings.TrimSpace(candidate)); outcome {
		case OutcomeTimeout, OutcomeDecline, OutcomeCardDeclined, OutcomeInsufficientFunds, OutcomeRequiresAction:
			return outcome
		}
	}
	return ""
}

func (a *Adapter) store(id string, intent paymentdomain.PaymentIntent, status paymentdomain.PaymentStatus) {
	a.payments[id] = &payment{
		id:         id,
		donationID: intent.DonationID,
		status:     status,
		amount:     intent.Amount,
		refunded:   decimal.Zero,
		metadata:   intent.Metadata,
		createdAt:  a.now().UTC(),
	}
}

// CapturePayment completes an authorized payment. Completed payments are
// reported as they are.
func (a *Adapter) CapturePayment(_ context.Context, intentID string) (paymentdomain.PaymentResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.payments[strings.TrimSpace(intentID)]
	if !ok {
		return notFound(intentID), nil
	}
	switch p.status {
	case paymentdomain.StatusProcessing:
		a.captures++
		p.status = paymentdomain.StatusCompleted
	case paymentdomain.StatusFailed, paymentdomain.StatusCancelled:
		return paymentdomain.Failure("payment "+p.id+" cannot be captured", paymentdomain.CodeCaptureFailed, map[string]any{"status": p.status.String()}), nil
	}
	return p.result(), nil
}

func (a *Adapter) RefundPayment(_ context.Context, req paymentdomain.RefundRequest) (paymentdomain.PaymentResult, error) {
	if err := req.Validate(); err != nil {
		return paymentdomain.Failure(err.Error(), paymentdomain.CodeInvalidRequest, nil), nil
	}
	amount, _ := req.Money()
	key := req.Key()

	a.mu.Lock()
	defer a.mu.Unlock()

	if replay, ok := a.replays[key]; ok {
		return replay, nil
	}
	p, ok := a.payments[strings.TrimSpace(req.TransactionID)]
	if !ok {
		return notFound(req.TransactionID), nil
	}
	if p.status != paymentdomain.StatusCompleted {
		if p.status == paymentdomain.StatusRefunded {
			return paymentdomain.Failure("payment "+p.id+" is already refunded", paymentdomain.CodeAlreadyRefunded, nil), nil
		}
		return paymentdomain.Failure("payment "+p.id+" is not captured", paymentdomain.CodeRefundFailed, nil), nil
	}
	if amount.Currency != p.amount.Currency {
		return paymentdomain.Failure("refund currency does not match payment", paymentdomain.CodeInvalidRequest, nil), nil
	}
	if p.refunded.Add(amount.Amount).GreaterThan(p.amount.Amount) {
		return paymentdomain.Failure(
			fmt.Sprintf("refund of %s exceeds the refundable amount", amount),
			paymentdomain.CodeRefundAmountExceeded,
			map[string]any{"refunded": p.refunded.String()},
		), nil
	}

	p.refunded = p.refunded.Add(amount.Amount)
	if p.refunded.Equal(p.amount.Amount) {
		p.status = paymentdomain.StatusRefunded
	}

	id := "mock_re_" + uuid.NewSHA1(idNamespace, []byte(key)).String()
	result := paymentdomain.Success(paymentdomain.Details{
		TransactionID: id,
		IntentID:      p.id,
		Status:        paymentdomain.StatusRefunded,
		Amount:        amount,
		GatewayData: map[string]any{
			"simulated":      true,
			"reason":         req.Reason,
			"fully_refunded": p.status == paymentdomain.StatusRefunded,
		},
		Metadata: req.Metadata,
	})
	a.refunds[id] = result
	a.replays[key] = result
	return result, nil
}

func (a *Adapter) GetTransaction(_ context.Context, transactionID string) (paymentdomain.PaymentResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lookup(transactionID), nil
}

func (a *Adapter) lookup(transactionID string) paymentdomain.PaymentResult {
	transactionID = strings.TrimSpace(transactionID)
	if p, ok := a.payments[transactionID]; ok {
		return p.result()
	}
	if refund, ok := a.refunds[transactionID]; ok {
		return refund
	}
	return notFound(transactionID)
}

func (p *payment) result() paymentdomain.PaymentResult {
	details := paymentdomain.Details{
		TransactionID: p.id,
		IntentID:      p.id,
		Status:        p.status,
		Amount:        p.amount,
		GatewayData: map[string]any{
			"simulated":   true,
			"donation_id": p.donationID,
			"refunded":    p.refunded.String(),
		},
		Metadata: p.metadata,
	}
	if p.status == paymentdomain.StatusRequiresAction {
		details.RedirectURL = authenticateURL + p.id
	}
	return paymentdomain.FromStatus(details, "mock payment "+p.status.String(), paymentdomain.CodePaymentFailed)
}

func notFound(id string) paymentdomain.PaymentResult {
	return paymentdomain.Failure("no such transaction: "+id, paymentdomain.CodeTransactionNotFound, nil)
}

func supportsCurrency(currency string) bool {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	for _, code := range supportedCurrencies {
		if code == currency {
			return true
		}
	}
	return false
}

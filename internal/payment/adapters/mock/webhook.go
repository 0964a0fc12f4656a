package mock

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/givebridge/internal/payment/adapters/transport"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/money"
	"go.uber.org/zap"
)

const SignatureHeader = "X-Mock-Signature"

// Event is the body of a simulated webhook delivery.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created time.Time `json:"created"`
	Data    EventData `json:"data"`
}

type EventData struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Sign renders event as a signed delivery for secret.
func Sign(secret string, event Event) ([]byte, http.Header, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, nil, err
	}
	headers := http.Header{}
	headers.Set(SignatureHeader, transport.SignHex(secret, payload))
	return payload, headers, nil
}

// HandleWebhook verifies X-Mock-Signature, then resolves the event against
// the in-memory store.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if !transport.VerifyHex(a.webhookSecret, payload, headers.Get(SignatureHeader)) {
		return paymentdomain.ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return paymentdomain.ErrInvalidEvent
	}

	resolved := paymentdomain.WebhookEvent{
		Provider:          providerName,
		EventID:           event.ID,
		ProviderEventType: event.Type,
		OccurredAt:        event.Created.UTC(),
		RawPayload:        payload,
	}
	if event.Created.IsZero() {
		resolved.OccurredAt = a.now().UTC()
	}

	switch event.Type {
	case "payment.succeeded":
		resolved.Type = paymentdomain.EventPaymentSucceeded
		resolved.Result = a.settle(event.Data.TransactionID, paymentdomain.StatusCompleted)
	case "payment.failed":
		resolved.Type = paymentdomain.EventPaymentFailed
		resolved.Result = a.settle(event.Data.TransactionID, paymentdomain.StatusFailed)
		if event.Data.ErrorCode != "" {
			resolved.Result.ErrorCode = event.Data.ErrorCode
		}
	case "payment.refunded":
		resolved.Type = paymentdomain.EventPaymentRefunded
		resolved.Result = a.read(event.Data.TransactionID)
	case "dispute.created":
		resolved.Type = paymentdomain.EventDisputeCreated
		resolved.Result = a.read(event.Data.TransactionID)
		if resolved.Result.GatewayData == nil {
			resolved.Result.GatewayData = map[string]any{}
		}
		resolved.Result.GatewayData["dispute_reason"] = event.Data.Reason
	case "invoice.paid":
		amount, err := money.Parse(event.Data.Amount, event.Data.Currency)
		if err != nil {
			return paymentdomain.ErrInvalidPayload
		}
		resolved.Type = paymentdomain.EventRecurringPaid
		resolved.Result = paymentdomain.Success(paymentdomain.Details{
			TransactionID: event.Data.TransactionID,
			Amount:        amount,
			GatewayData:   map[string]any{"simulated": true},
		})
	default:
		a.log.Info("mock webhook event ignored",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
		)
		return nil
	}

	if resolved.Result.ErrorCode == paymentdomain.CodeTransactionNotFound {
		a.log.Warn("mock webhook references unknown transaction",
			zap.String("event_id", event.ID),
			zap.String("transaction_id", event.Data.TransactionID),
		)
		return nil
	}
	if a.dispatcher == nil {
		a.log.Warn("mock webhook event has no dispatcher", zap.String("event_id", event.ID))
		return nil
	}
	return a.dispatcher.Dispatch(ctx, resolved)
}

// settle moves a non-terminal payment to status, simulating an asynchronous
// provider outcome.
func (a *Adapter) settle(transactionID string, status paymentdomain.PaymentStatus) paymentdomain.PaymentResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.payments[strings.TrimSpace(transactionID)]; ok && !p.status.IsTerminal() {
		p.status = status
	}
	return a.lookup(transactionID)
}

func (a *Adapter) read(transactionID string) paymentdomain.PaymentResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lookup(transactionID)
}

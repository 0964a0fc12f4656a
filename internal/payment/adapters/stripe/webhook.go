package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/givebridge/internal/payment/adapters/transport"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"go.uber.org/zap"
)

const signatureTolerance = 5 * time.Minute

// HandleWebhook verifies the Stripe-Signature header against the raw body,
// then resolves and dispatches the event. Unknown event types are logged and
// acknowledged.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if err := a.verify(payload, headers.Get("Stripe-Signature")); err != nil {
		return err
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return paymentdomain.ErrInvalidEvent
	}

	webhookEvent, err := a.resolve(ctx, event)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			a.log.Info("stripe webhook event ignored",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.Type),
			)
			return nil
		}
		return err
	}
	webhookEvent.RawPayload = payload
	return a.dispatch(ctx, webhookEvent)
}

func (a *Adapter) verify(payload []byte, sigHeader string) error {
	sigHeader = strings.TrimSpace(sigHeader)
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := a.now().Sub(time.Unix(seconds, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return paymentdomain.ErrInvalidSignature
	}

	signed := make([]byte, 0, len(timestamp)+1+len(payload))
	signed = append(signed, timestamp...)
	signed = append(signed, '.')
	signed = append(signed, payload...)
	for _, signature := range signatures {
		if transport.VerifyHex(a.webhookSecret, signed, signature) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) resolve(ctx context.Context, event stripeEvent) (paymentdomain.WebhookEvent, error) {
	out := paymentdomain.WebhookEvent{
		Provider:          providerName,
		EventID:           event.ID,
		ProviderEventType: event.Type,
		OccurredAt:        timestamp(event.Created, 0),
	}

	switch strings.TrimSpace(event.Type) {
	case "payment_intent.succeeded":
		pi, err := decodeObject[stripePaymentIntent](event)
		if err != nil {
			return out, err
		}
		out.Type = paymentdomain.EventPaymentSucceeded
		if out.Result, err = intentResult(pi, paymentdomain.CodePaymentFailed); err != nil {
			return out, transport.InvalidPayload(err)
		}
	case "payment_intent.payment_failed", "payment_intent.canceled":
		pi, err := decodeObject[stripePaymentIntent](event)
		if err != nil {
			return out, err
		}
		out.Type = paymentdomain.EventPaymentFailed
		if out.Result, err = intentResult(pi, paymentdomain.CodePaymentFailed); err != nil {
			return out, transport.InvalidPayload(err)
		}
	case "charge.refunded":
		charge, err := decodeObject[stripeCharge](event)
		if err != nil {
			return out, err
		}
		refunded, err := amountOf(charge.AmountRefunded, charge.Currency)
		if err != nil {
			return out, transport.InvalidPayload(err)
		}
		out.Type = paymentdomain.EventPaymentRefunded
		out.Result = paymentdomain.Success(paymentdomain.Details{
			TransactionID: charge.ID,
			IntentID:      charge.PaymentIntent,
			Status:        paymentdomain.StatusRefunded,
			Amount:        refunded,
			GatewayData: map[string]any{
				"charge_id":      charge.ID,
				"fully_refunded": charge.Refunded,
				"charge_amount":  charge.Amount,
			},
			Metadata: charge.Metadata,
		})
	case "charge.dispute.created":
		dispute, err := decodeObject[stripeDispute](event)
		if err != nil {
			return out, err
		}
		if dispute.Charge == "" {
			return out, paymentdomain.ErrInvalidEvent
		}
		disputed, err := amountOf(dispute.Amount, dispute.Currency)
		if err != nil {
			return out, transport.InvalidPayload(err)
		}
		result, err := a.GetTransaction(ctx, dispute.Charge)
		if err != nil {
			return out, err
		}
		if result.GatewayData == nil {
			result.GatewayData = map[string]any{}
		}
		result.GatewayData["dispute_id"] = dispute.ID
		result.GatewayData["dispute_reason"] = dispute.Reason
		result.GatewayData["dispute_amount"] = disputed.Format()
		out.Type = paymentdomain.EventDisputeCreated
		out.Result = result
		out.OccurredAt = timestamp(dispute.Created, event.Created)
	case "invoice.paid", "invoice.payment_succeeded":
		invoice, err := decodeObject[stripeInvoice](event)
		if err != nil {
			return out, err
		}
		paid, err := amountOf(invoice.AmountPaid, invoice.Currency)
		if err != nil {
			return out, transport.InvalidPayload(err)
		}
		transactionID := invoice.Charge
		if transactionID == "" {
			transactionID = invoice.PaymentIntent
		}
		out.Type = paymentdomain.EventRecurringPaid
		out.Result = paymentdomain.Success(paymentdomain.Details{
			TransactionID: transactionID,
			IntentID:      invoice.PaymentIntent,
			Amount:        paid,
			GatewayData: map[string]any{
				"invoice_id":      invoice.ID,
				"subscription_id": invoice.Subscription,
			},
			Metadata: invoice.Metadata,
		})
	default:
		return out, paymentdomain.ErrEventIgnored
	}
	return out, nil
}

func (a *Adapter) dispatch(ctx context.Context, event paymentdomain.WebhookEvent) error {
	if a.dispatcher == nil {
		a.log.Warn("stripe webhook event has no dispatcher",
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.Type)),
		)
		return nil
	}
	return a.dispatcher.Dispatch(ctx, event)
}

func decodeObject[T any](event stripeEvent) (T, error) {
	var out T
	if len(event.Data.Object) == 0 {
		return out, paymentdomain.ErrInvalidPayload
	}
	if err := json.Unmarshal(event.Data.Object, &out); err != nil {
		return out, paymentdomain.ErrInvalidPayload
	}
	return out, nil
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

// timestamp returns the zero time when Stripe sent none; the ledger then
// relies on its own received time.
func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value <= 0 {
		value = fallback
	}
	if value <= 0 {
		return time.Time{}
	}
	return time.Unix(value, 0).UTC()
}

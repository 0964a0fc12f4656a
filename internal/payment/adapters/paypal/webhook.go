package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/givebridge/internal/payment/adapters/transport"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/money"
	"go.uber.org/zap"
)

var transmissionHeaders = []string{
	"PAYPAL-AUTH-ALGO",
	"PAYPAL-CERT-URL",
	"PAYPAL-TRANSMISSION-ID",
	"PAYPAL-TRANSMISSION-SIG",
	"PAYPAL-TRANSMISSION-TIME",
}

// HandleWebhook asks PayPal to verify the transmission signature for the
// configured webhook id, then resolves and dispatches the event.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	values := make(map[string]string, len(transmissionHeaders))
	for _, name := range transmissionHeaders {
		value := strings.TrimSpace(headers.Get(name))
		if value == "" {
			return paymentdomain.ErrInvalidSignature
		}
		values[name] = value
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidSignature
	}
	if err := a.verify(ctx, payload, values); err != nil {
		return err
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return paymentdomain.ErrInvalidEvent
	}

	resolved, err := a.resolve(ctx, event)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			a.log.Info("paypal webhook event ignored",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.EventType),
			)
			return nil
		}
		return err
	}
	resolved.RawPayload = payload

	if a.dispatcher == nil {
		a.log.Warn("paypal webhook event has no dispatcher", zap.String("event_id", event.ID))
		return nil
	}
	return a.dispatcher.Dispatch(ctx, resolved)
}

func (a *Adapter) verify(ctx context.Context, payload []byte, values map[string]string) error {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:     "verify_webhook",
		Method: http.MethodPost,
		Path:   "/v1/notifications/verify-webhook-signature",
		JSON: verifyRequest{
			AuthAlgo:         values["PAYPAL-AUTH-ALGO"],
			CertURL:          values["PAYPAL-CERT-URL"],
			TransmissionID:   values["PAYPAL-TRANSMISSION-ID"],
			TransmissionSig:  values["PAYPAL-TRANSMISSION-SIG"],
			TransmissionTime: values["PAYPAL-TRANSMISSION-TIME"],
			WebhookID:        a.webhookID,
			WebhookEvent:     json.RawMessage(payload),
		},
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		a.log.Warn("paypal webhook verification rejected", zap.Int("status", resp.StatusCode))
		return paymentdomain.ErrInvalidSignature
	}
	var out verifyResponse
	if err := a.api.Decode("verify_webhook", resp, &out); err != nil {
		return err
	}
	if !strings.EqualFold(out.VerificationStatus, "SUCCESS") {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) resolve(ctx context.Context, event webhookEvent) (paymentdomain.WebhookEvent, error) {
	out := paymentdomain.WebhookEvent{
		Provider:          providerName,
		EventID:           event.ID,
		ProviderEventType: event.EventType,
		OccurredAt:        parseTime(event.CreateTime),
	}

	switch strings.ToUpper(strings.TrimSpace(event.EventType)) {
	case "PAYMENT.CAPTURE.COMPLETED":
		c, err := decodeResource[capture](event)
		if err != nil {
			return out, err
		}
		out.Type = paymentdomain.EventPaymentSucceeded
		if out.Result, err = captureResult(c, ""); err != nil {
			return out, transport.InvalidPayload(err)
		}
	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		c, err := decodeResource[capture](event)
		if err != nil {
			return out, err
		}
		out.Type = paymentdomain.EventPaymentFailed
		if out.Result, err = captureResult(c, ""); err != nil {
			return out, transport.InvalidPayload(err)
		}
	case "PAYMENT.CAPTURE.REFUNDED":
		r, err := decodeResource[refund](event)
		if err != nil {
			return out, err
		}
		out.Type = paymentdomain.EventPaymentRefunded
		if out.Result, err = refundResult(r, r.captureID()); err != nil {
			return out, transport.InvalidPayload(err)
		}
	case "CUSTOMER.DISPUTE.CREATED":
		d, err := decodeResource[dispute](event)
		if err != nil {
			return out, err
		}
		if len(d.DisputedTransactions) == 0 || d.DisputedTransactions[0].SellerTransactionID == "" {
			return out, paymentdomain.ErrInvalidEvent
		}
		disputed, err := d.DisputeAmount.money()
		if err != nil {
			return out, transport.InvalidPayload(err)
		}
		result, err := a.GetTransaction(ctx, d.DisputedTransactions[0].SellerTransactionID)
		if err != nil {
			return out, err
		}
		if result.GatewayData == nil {
			result.GatewayData = map[string]any{}
		}
		result.GatewayData["dispute_id"] = d.DisputeID
		result.GatewayData["dispute_reason"] = d.Reason
		result.GatewayData["dispute_amount"] = disputed.Format()
		out.Type = paymentdomain.EventDisputeCreated
		out.Result = result
	case "PAYMENT.SALE.COMPLETED":
		s, err := decodeResource[sale](event)
		if err != nil {
			return out, err
		}
		total, err := money.Parse(s.Amount.Total, s.Amount.Currency)
		if err != nil {
			return out, transport.InvalidPayload(err)
		}
		out.Type = paymentdomain.EventRecurringPaid
		out.Result = paymentdomain.Success(paymentdomain.Details{
			TransactionID: s.ID,
			Amount:        total,
			GatewayData: map[string]any{
				"sale_id":              s.ID,
				"billing_agreement_id": s.BillingAgreementID,
				"state":                s.State,
			},
		})
	case "CHECKOUT.ORDER.APPROVED":
		o, err := decodeResource[order](event)
		if err != nil {
			return out, err
		}
		out.Type = paymentdomain.EventCheckoutApproved
		if out.Result, err = orderResult(o, paymentdomain.CodePaymentFailed); err != nil {
			return out, transport.InvalidPayload(err)
		}
	default:
		return out, paymentdomain.ErrEventIgnored
	}
	return out, nil
}

func decodeResource[T any](event webhookEvent) (T, error) {
	var out T
	if len(event.Resource) == 0 {
		return out, paymentdomain.ErrInvalidPayload
	}
	if err := json.Unmarshal(event.Resource, &out); err != nil {
		return out, paymentdomain.ErrInvalidPayload
	}
	return out, nil
}

// parseTime leaves an absent or unparseable create_time as the zero time.
func parseTime(value string) time.Time {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC()
	}
	return time.Time{}
}

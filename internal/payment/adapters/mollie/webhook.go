package mollie

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/givebridge/internal/payment/adapters/transport"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"go.uber.org/zap"
)

const signatureHeader = "X-Mollie-Signature"

// HandleWebhook verifies the body signature, then resolves the referenced
// payment through the API. The notification itself carries only an id, so
// status always comes from the read.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(signatureHeader))
	signature = strings.TrimPrefix(signature, "sha256=")
	if !transport.VerifyHex(a.webhookSecret, payload, signature) {
		return paymentdomain.ErrInvalidSignature
	}

	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	paymentID := strings.TrimSpace(form.Get("id"))
	if paymentID == "" {
		return paymentdomain.ErrInvalidPayload
	}
	if !strings.HasPrefix(paymentID, "tr_") {
		a.log.Info("mollie webhook for non-payment resource ignored", zap.String("resource_id", paymentID))
		return nil
	}

	payment, failure, err := a.fetchPayment(ctx, "handle_webhook", paymentID)
	if err != nil {
		return err
	}
	if failure != nil {
		a.log.Warn("mollie webhook references unknown payment",
			zap.String("payment_id", paymentID),
			zap.String("error_code", failure.ErrorCode),
		)
		return nil
	}

	event, ok, err := resolveEvent(*payment)
	if err != nil {
		return a.api.Fail("handle_webhook", paymentdomain.CategoryDecode, err)
	}
	if !ok {
		a.log.Info("mollie webhook event ignored",
			zap.String("payment_id", paymentID),
			zap.String("status", payment.Status),
		)
		return nil
	}
	event.RawPayload = payload

	if a.dispatcher == nil {
		a.log.Warn("mollie webhook event has no dispatcher", zap.String("event_id", event.EventID))
		return nil
	}
	return a.dispatcher.Dispatch(ctx, event)
}

// resolveEvent derives the canonical event from the payment's current state.
// Mollie does not send event ids; the id is built from the state so a
// redelivery of the same state dedupes downstream.
func resolveEvent(payment molliePayment) (paymentdomain.WebhookEvent, bool, error) {
	result, err := paymentResult(payment, paymentdomain.CodePaymentFailed)
	if err != nil {
		return paymentdomain.WebhookEvent{}, false, err
	}
	chargedBack, err := optionalAmount(payment.AmountChargedBack)
	if err != nil {
		return paymentdomain.WebhookEvent{}, false, err
	}
	refunded, err := refundedAmount(payment)
	if err != nil {
		return paymentdomain.WebhookEvent{}, false, err
	}

	event := paymentdomain.WebhookEvent{
		Provider:          providerName,
		ProviderEventType: "payment." + payment.Status,
		Result:            result,
		OccurredAt:        parseTime(payment.PaidAt, payment.FailedAt, payment.CreatedAt),
	}

	switch {
	case !chargedBack.IsZero():
		event.Type = paymentdomain.EventDisputeCreated
		event.EventID = payment.ID + ":chargeback:" + payment.AmountChargedBack.Value
	case !refunded.IsZero():
		event.Type = paymentdomain.EventPaymentRefunded
		event.EventID = payment.ID + ":refunded:" + payment.AmountRefunded.Value
		event.Result.Status = paymentdomain.StatusRefunded
		event.Result.Amount = refunded
	case payment.Status == "paid" && payment.SequenceType == "recurring":
		event.Type = paymentdomain.EventRecurringPaid
		event.EventID = payment.ID + ":paid"
	case payment.Status == "paid":
		event.Type = paymentdomain.EventPaymentSucceeded
		event.EventID = payment.ID + ":paid"
	case payment.Status == "authorized":
		event.Type = paymentdomain.EventCheckoutApproved
		event.EventID = payment.ID + ":authorized"
	case payment.Status == "failed", payment.Status == "expired", payment.Status == "canceled":
		event.Type = paymentdomain.EventPaymentFailed
		event.EventID = payment.ID + ":" + payment.Status
	default:
		return event, false, nil
	}
	return event, true, nil
}

package stripe

import (
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
)

var intentStatuses = paymentdomain.StatusTable{
	"requires_payment_method": paymentdomain.StatusPending,
	"requires_confirmation":   paymentdomain.StatusPending,
	"requires_action":         paymentdomain.StatusRequiresAction,
	"processing":              paymentdomain.StatusProcessing,
	"requires_capture":        paymentdomain.StatusProcessing,
	"canceled":                paymentdomain.StatusCancelled,
	"succeeded":               paymentdomain.StatusCompleted,
}

var chargeStatuses = paymentdomain.StatusTable{
	"pending":   paymentdomain.StatusProcessing,
	"succeeded": paymentdomain.StatusCompleted,
	"failed":    paymentdomain.StatusFailed,
}

var refundStatuses = paymentdomain.StatusTable{
	"pending":         paymentdomain.StatusPending,
	"requires_action": paymentdomain.StatusRequiresAction,
	"succeeded":       paymentdomain.StatusRefunded,
	"failed":          paymentdomain.StatusFailed,
	"canceled":        paymentdomain.StatusCancelled,
}

// refundReasons lists the reasons Stripe accepts natively; anything else is
// kept as metadata.
var refundReasons = map[string]string{
	"duplicate":             "duplicate",
	"fraudulent":            "fraudulent",
	"requested_by_customer": "requested_by_customer",
}

// MapIntentStatus maps a PaymentIntent status. Unknown values are PENDING.
func MapIntentStatus(status string) paymentdomain.PaymentStatus {
	return intentStatuses.Map(status)
}

func MapRefundStatus(status string) paymentdomain.PaymentStatus {
	return refundStatuses.Map(status)
}

func MapChargeStatus(status string) paymentdomain.PaymentStatus {
	return chargeStatuses.Map(status)
}

func intentResult(pi stripePaymentIntent, failCode string) (paymentdomain.PaymentResult, error) {
	status := MapIntentStatus(pi.Status)
	amount := pi.Amount
	if status == paymentdomain.StatusCompleted && pi.AmountReceived > 0 {
		amount = pi.AmountReceived
	}

	gatewayData := map[string]any{
		"payment_intent_id": pi.ID,
		"status":            pi.Status,
		"capture_method":    pi.CaptureMethod,
	}
	if pi.ClientSecret != "" {
		gatewayData["client_secret"] = pi.ClientSecret
	}

	transactionID := pi.ID
	if pi.LatestCharge.ID != "" {
		transactionID = pi.LatestCharge.ID
		gatewayData["charge_id"] = pi.LatestCharge.ID
	}

	total, err := amountOf(amount, pi.Currency)
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	details := paymentdomain.Details{
		TransactionID: transactionID,
		IntentID:      pi.ID,
		Status:        status,
		Amount:        total,
		GatewayData:   gatewayData,
		Metadata:      pi.Metadata,
	}
	if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil {
		details.RedirectURL = pi.NextAction.RedirectToURL.URL
	}

	if pi.LastPaymentError != nil && (status == paymentdomain.StatusPending || status.IsFailure()) {
		code := mapErrorCode(opCreate, *pi.LastPaymentError, 0)
		gatewayData["error_code"] = pi.LastPaymentError.Code
		gatewayData["decline_code"] = pi.LastPaymentError.DeclineCode
		out := paymentdomain.Failure(pi.LastPaymentError.Message, code, gatewayData)
		out.IntentID = pi.ID
		out.Amount = details.Amount
		out.Metadata = pi.Metadata
		return out, nil
	}

	message := ""
	if status.IsFailure() {
		message = "payment intent " + pi.Status
		if pi.CancellationReason != "" {
			message += ": " + pi.CancellationReason
		}
	}
	return paymentdomain.FromStatus(details, message, failCode), nil
}

func chargeResult(charge stripeCharge) (paymentdomain.PaymentResult, error) {
	status := MapChargeStatus(charge.Status)
	amount := charge.Amount
	if charge.Refunded {
		status = paymentdomain.StatusRefunded
		amount = charge.AmountRefunded
	}
	total, err := amountOf(amount, charge.Currency)
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	details := paymentdomain.Details{
		TransactionID: charge.ID,
		IntentID:      charge.PaymentIntent,
		Status:        status,
		Amount:        total,
		GatewayData: map[string]any{
			"charge_id":       charge.ID,
			"status":          charge.Status,
			"amount_refunded": charge.AmountRefunded,
			"disputed":        charge.Disputed,
		},
		Metadata: charge.Metadata,
	}
	code := paymentdomain.CodePaymentFailed
	if charge.FailureCode != "" {
		code = mapErrorCode(opCreate, stripeError{Code: charge.FailureCode}, 0)
	}
	return paymentdomain.FromStatus(details, charge.FailureMessage, code), nil
}

func refundResult(refund stripeRefund) (paymentdomain.PaymentResult, error) {
	total, err := amountOf(refund.Amount, refund.Currency)
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	details := paymentdomain.Details{
		TransactionID: refund.ID,
		IntentID:      refund.PaymentIntent,
		Status:        MapRefundStatus(refund.Status),
		Amount:        total,
		GatewayData: map[string]any{
			"refund_id": refund.ID,
			"charge_id": refund.Charge,
			"status":    refund.Status,
			"reason":    refund.Reason,
		},
		Metadata: refund.Metadata,
	}
	message := ""
	if refund.FailureReason != "" {
		message = "refund failed: " + refund.FailureReason
	}
	return paymentdomain.FromStatus(details, message, paymentdomain.CodeRefundFailed), nil
}

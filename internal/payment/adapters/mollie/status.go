package mollie

import (
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/money"
)

var paymentStatuses = paymentdomain.StatusTable{
	"open":       paymentdomain.StatusPending,
	"pending":    paymentdomain.StatusPending,
	"authorized": paymentdomain.StatusProcessing,
	"paid":       paymentdomain.StatusCompleted,
	"canceled":   paymentdomain.StatusCancelled,
	"expired":    paymentdomain.StatusFailed,
	"failed":     paymentdomain.StatusFailed,
}

var refundStatuses = paymentdomain.StatusTable{
	"queued":     paymentdomain.StatusPending,
	"pending":    paymentdomain.StatusPending,
	"processing": paymentdomain.StatusProcessing,
	"refunded":   paymentdomain.StatusRefunded,
	"failed":     paymentdomain.StatusFailed,
	"canceled":   paymentdomain.StatusCancelled,
}

var captureStatuses = paymentdomain.StatusTable{
	"pending":   paymentdomain.StatusProcessing,
	"succeeded": paymentdomain.StatusCompleted,
	"failed":    paymentdomain.StatusFailed,
}

// MapPaymentStatus maps a Mollie payment status. Unknown values are PENDING.
func MapPaymentStatus(status string) paymentdomain.PaymentStatus {
	return paymentStatuses.Map(status)
}

func MapRefundStatus(status string) paymentdomain.PaymentStatus {
	return refundStatuses.Map(status)
}

func MapCaptureStatus(status string) paymentdomain.PaymentStatus {
	return captureStatuses.Map(status)
}

func paymentResult(payment molliePayment, failCode string) (paymentdomain.PaymentResult, error) {
	status := MapPaymentStatus(payment.Status)
	amount, err := payment.Amount.money()
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	refunded, err := refundedAmount(payment)
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}

	gatewayData := map[string]any{
		"payment_id":    payment.ID,
		"status":        payment.Status,
		"method":        payment.Method,
		"sequence_type": payment.SequenceType,
	}
	if !refunded.IsZero() {
		gatewayData["amount_refunded"] = refunded.Format()
		if !refunded.Amount.LessThan(amount.Amount) {
			status = paymentdomain.StatusRefunded
		}
	}
	if payment.AmountChargedBack != nil {
		gatewayData["amount_charged_back"] = payment.AmountChargedBack.Value
	}

	details := paymentdomain.Details{
		TransactionID: payment.ID,
		IntentID:      payment.ID,
		Status:        status,
		Amount:        amount,
		GatewayData:   gatewayData,
		Metadata:      payment.Metadata,
	}
	if payment.Links.Checkout != nil {
		details.RedirectURL = payment.Links.Checkout.Href
	}

	message := ""
	if status.IsFailure() {
		message = "mollie payment " + payment.Status
	}
	return paymentdomain.FromStatus(details, message, failCode), nil
}

func captureResult(payment molliePayment, capture mollieCapture) (paymentdomain.PaymentResult, error) {
	source := capture.Amount
	if source.Value == "" {
		source = payment.Amount
	}
	amount, err := source.money()
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	details := paymentdomain.Details{
		TransactionID: payment.ID,
		IntentID:      payment.ID,
		Status:        MapCaptureStatus(capture.Status),
		Amount:        amount,
		GatewayData: map[string]any{
			"payment_id":     payment.ID,
			"capture_id":     capture.ID,
			"capture_status": capture.Status,
		},
		Metadata: payment.Metadata,
	}
	return paymentdomain.FromStatus(details, "mollie capture "+capture.Status, paymentdomain.CodeCaptureFailed), nil
}

func refundResult(refund mollieRefund) (paymentdomain.PaymentResult, error) {
	amount, err := refund.Amount.money()
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	details := paymentdomain.Details{
		TransactionID: refund.ID,
		IntentID:      refund.PaymentID,
		Status:        MapRefundStatus(refund.Status),
		Amount:        amount,
		GatewayData: map[string]any{
			"refund_id":  refund.ID,
			"payment_id": refund.PaymentID,
			"status":     refund.Status,
		},
		Metadata: refund.Metadata,
	}
	return paymentdomain.FromStatus(details, "mollie refund "+refund.Status, paymentdomain.CodeRefundFailed), nil
}

// refundedAmount is zero when Mollie omits amountRefunded.
func refundedAmount(payment molliePayment) (money.Money, error) {
	return optionalAmount(payment.AmountRefunded)
}

func optionalAmount(a *mollieAmount) (money.Money, error) {
	if a == nil || a.Value == "" {
		return money.Money{}, nil
	}
	return a.money()
}

package paypal

import (
	"fmt"

	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/money"
)

var orderStatuses = paymentdomain.StatusTable{
	"created":               paymentdomain.StatusRequiresAction,
	"saved":                 paymentdomain.StatusPending,
	"approved":              paymentdomain.StatusProcessing,
	"voided":                paymentdomain.StatusCancelled,
	"completed":             paymentdomain.StatusCompleted,
	"payer_action_required": paymentdomain.StatusRequiresAction,
}

var captureStatuses = paymentdomain.StatusTable{
	"completed":          paymentdomain.StatusCompleted,
	"declined":           paymentdomain.StatusFailed,
	"partially_refunded": paymentdomain.StatusCompleted,
	"pending":            paymentdomain.StatusProcessing,
	"refunded":           paymentdomain.StatusRefunded,
	"failed":             paymentdomain.StatusFailed,
}

var refundStatuses = paymentdomain.StatusTable{
	"completed": paymentdomain.StatusRefunded,
	"pending":   paymentdomain.StatusPending,
	"cancelled": paymentdomain.StatusCancelled,
	"failed":    paymentdomain.StatusFailed,
}

// MapOrderStatus maps a PayPal order status. Unknown values are PENDING.
func MapOrderStatus(status string) paymentdomain.PaymentStatus {
	return orderStatuses.Map(status)
}

func MapCaptureStatus(status string) paymentdomain.PaymentStatus {
	return captureStatuses.Map(status)
}

func MapRefundStatus(status string) paymentdomain.PaymentStatus {
	return refundStatuses.Map(status)
}

func orderResult(o order, failCode string) (paymentdomain.PaymentResult, error) {
	if c := o.lastCapture(); c != nil {
		result, err := captureResult(*c, o.ID)
		if err != nil {
			return paymentdomain.PaymentResult{}, err
		}
		if result.Metadata == nil {
			result.Metadata = o.metadata()
		}
		return result, nil
	}

	status := MapOrderStatus(o.Status)
	gatewayData := map[string]any{
		"order_id": o.ID,
		"status":   o.Status,
		"intent":   o.Intent,
	}
	if auth := o.pendingAuthorization(); auth != nil {
		status = paymentdomain.StatusProcessing
		gatewayData["authorization_id"] = auth.ID
	}

	var total money.Money
	if unit := o.unit(); unit != nil {
		var err error
		if total, err = unit.Amount.money(); err != nil {
			return paymentdomain.PaymentResult{}, err
		}
	}
	details := paymentdomain.Details{
		TransactionID: o.ID,
		IntentID:      o.ID,
		Status:        status,
		Amount:        total,
		RedirectURL:   o.approveLink(),
		GatewayData:   gatewayData,
		Metadata:      o.metadata(),
	}
	return paymentdomain.FromStatus(details, "paypal order "+o.Status, failCode), nil
}

func captureResult(c capture, orderID string) (paymentdomain.PaymentResult, error) {
	total, err := c.Amount.money()
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if orderID == "" && c.SupplementaryData != nil {
		orderID = c.SupplementaryData.RelatedIDs.OrderID
	}
	gatewayData := map[string]any{
		"capture_id": c.ID,
		"order_id":   orderID,
		"status":     c.Status,
	}
	message := "paypal capture " + c.Status
	if c.StatusDetails != nil && c.StatusDetails.Reason != "" {
		gatewayData["status_reason"] = c.StatusDetails.Reason
		message += ": " + c.StatusDetails.Reason
	}
	var metadata map[string]any
	if c.CustomID != "" {
		metadata = map[string]any{"donation_id": c.CustomID}
	}
	code := paymentdomain.CodePaymentFailed
	if MapCaptureStatus(c.Status) == paymentdomain.StatusFailed && c.Status == "DECLINED" {
		code = paymentdomain.CodeCardDeclined
	}
	return paymentdomain.FromStatus(paymentdomain.Details{
		TransactionID: c.ID,
		IntentID:      orderID,
		Status:        MapCaptureStatus(c.Status),
		Amount:        total,
		GatewayData:   gatewayData,
		Metadata:      metadata,
	}, message, code), nil
}

func refundResult(r refund, captureID string) (paymentdomain.PaymentResult, error) {
	total, err := r.Amount.money()
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	gatewayData := map[string]any{
		"refund_id":  r.ID,
		"capture_id": captureID,
		"status":     r.Status,
	}
	message := "paypal refund " + r.Status
	if r.StatusDetails != nil && r.StatusDetails.Reason != "" {
		message += ": " + r.StatusDetails.Reason
	}
	return paymentdomain.FromStatus(paymentdomain.Details{
		TransactionID: r.ID,
		IntentID:      captureID,
		Status:        MapRefundStatus(r.Status),
		Amount:        total,
		GatewayData:   gatewayData,
	}, message, paymentdomain.CodeRefundFailed), nil
}

// money is zero when PayPal omits the amount; a present but unparseable
// amount is an error.
func (a amount) money() (money.Money, error) {
	if a.Value == "" {
		return money.Money{}, nil
	}
	out, err := money.Parse(a.Value, a.CurrencyCode)
	if err != nil {
		return money.Money{}, fmt.Errorf("amount %q %q: %w", a.Value, a.CurrencyCode, err)
	}
	return out, nil
}

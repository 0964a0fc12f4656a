package stripe

import (
	"encoding/json"
	"net/http"

	"github.com/smallbiznis/givebridge/internal/payment/adapters/transport"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
)

type operation int

const (
	opCreate operation = iota
	opCapture
	opRefund
	opRead
)

type stripeErrorBody struct {
	Error *stripeError `json:"error"`
}

type stripeError struct {
	Type          string               `json:"type"`
	Code          string               `json:"code"`
	DeclineCode   string               `json:"decline_code"`
	Message       string               `json:"message"`
	Param         string               `json:"param"`
	PaymentIntent *stripePaymentIntent `json:"payment_intent"`
}

// failureFromResponse turns a 4xx Stripe answer into a business failure.
func failureFromResponse(resp *transport.Response, op operation) paymentdomain.PaymentResult {
	var body stripeErrorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.Error == nil {
		return paymentdomain.Failure(
			"stripe returned "+http.StatusText(resp.StatusCode),
			mapErrorCode(op, stripeError{}, resp.StatusCode),
			map[string]any{"http_status": resp.StatusCode},
		)
	}

	e := *body.Error
	gatewayData := map[string]any{
		"http_status": resp.StatusCode,
		"type":        e.Type,
		"code":        e.Code,
	}
	if e.DeclineCode != "" {
		gatewayData["decline_code"] = e.DeclineCode
	}
	if e.Param != "" {
		gatewayData["param"] = e.Param
	}
	if e.PaymentIntent != nil {
		gatewayData["payment_intent_id"] = e.PaymentIntent.ID
	}
	return paymentdomain.Failure(e.Message, mapErrorCode(op, e, resp.StatusCode), gatewayData)
}

func mapErrorCode(op operation, e stripeError, status int) string {
	switch {
	case e.DeclineCode == "insufficient_funds" || e.Code == "insufficient_funds":
		return paymentdomain.CodeInsufficientFunds
	case e.Code == "expired_card" || e.DeclineCode == "expired_card":
		return paymentdomain.CodeCardExpired
	case e.Code == "authentication_required" || e.DeclineCode == "authentication_required":
		return paymentdomain.CodeAuthenticationRequired
	case e.Code == "card_declined" || e.Type == "card_error":
		return paymentdomain.CodeCardDeclined
	case e.Code == "charge_already_refunded":
		return paymentdomain.CodeAlreadyRefunded
	case op == opRefund && (e.Code == "amount_too_large" || e.Param == "amount"):
		return paymentdomain.CodeRefundAmountExceeded
	case e.Code == "amount_too_small" || e.Code == "amount_too_large":
		return paymentdomain.CodeAmountOutOfBounds
	case e.Code == "payment_method_unactivated" || e.Param == "payment_method_types":
		return paymentdomain.CodeUnsupportedMethod
	case e.Param == "currency":
		return paymentdomain.CodeUnsupportedCurrency
	case e.Code == "resource_missing" || status == http.StatusNotFound:
		return paymentdomain.CodeTransactionNotFound
	case op == opCapture:
		return paymentdomain.CodeCaptureFailed
	case op == opRefund:
		return paymentdomain.CodeRefundFailed
	case e.Type == "invalid_request_error" || status == http.StatusBadRequest:
		return paymentdomain.CodeInvalidRequest
	default:
		return paymentdomain.CodePaymentFailed
	}
}

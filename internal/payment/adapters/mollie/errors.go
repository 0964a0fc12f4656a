package mollie

import (
	"encoding/json"
	"net/http"
	"strings"

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

// failureFromResponse turns a Mollie problem+json answer into a business
// failure.
func failureFromResponse(resp *transport.Response, op operation) paymentdomain.PaymentResult {
	var body mollieError
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		body = mollieError{}
	}
	if body.Status == 0 {
		body.Status = resp.StatusCode
	}
	message := body.Detail
	if message == "" {
		message = "mollie returned " + http.StatusText(resp.StatusCode)
	}
	gatewayData := map[string]any{
		"http_status": resp.StatusCode,
		"title":       body.Title,
	}
	if body.Field != "" {
		gatewayData["field"] = body.Field
	}
	return paymentdomain.Failure(message, mapErrorCode(op, body), gatewayData)
}

func mapErrorCode(op operation, e mollieError) string {
	field := strings.ToLower(e.Field)
	detail := strings.ToLower(e.Detail)
	switch {
	case e.Status == http.StatusNotFound:
		return paymentdomain.CodeTransactionNotFound
	case op == opRefund && strings.Contains(detail, "already been refunded"):
		return paymentdomain.CodeAlreadyRefunded
	case op == opRefund && strings.HasPrefix(field, "amount"):
		return paymentdomain.CodeRefundAmountExceeded
	case field == "method":
		return paymentdomain.CodeUnsupportedMethod
	case field == "amount.currency" || field == "currency":
		return paymentdomain.CodeUnsupportedCurrency
	case strings.HasPrefix(field, "amount"):
		return paymentdomain.CodeAmountOutOfBounds
	case op == opCapture:
		return paymentdomain.CodeCaptureFailed
	case op == opRefund:
		return paymentdomain.CodeRefundFailed
	case e.Status == http.StatusUnprocessableEntity || e.Status == http.StatusBadRequest:
		return paymentdomain.CodeInvalidRequest
	default:
		return paymentdomain.CodePaymentFailed
	}
}

package paypal

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

func decodeError(resp *transport.Response) paypalError {
	var body paypalError
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return paypalError{}
	}
	return body
}

func hasIssue(resp *transport.Response, issue string) bool {
	for _, detail := range decodeError(resp).Details {
		if strings.EqualFold(detail.Issue, issue) {
			return true
		}
	}
	return false
}

func failureFromResponse(resp *transport.Response, op operation) paymentdomain.PaymentResult {
	body := decodeError(resp)
	message := body.Message
	issue := ""
	if len(body.Details) > 0 {
		issue = body.Details[0].Issue
		if body.Details[0].Description != "" {
			message = body.Details[0].Description
		}
	}
	if message == "" {
		message = "paypal returned " + http.StatusText(resp.StatusCode)
	}
	gatewayData := map[string]any{
		"http_status": resp.StatusCode,
		"name":        body.Name,
		"debug_id":    body.DebugID,
	}
	if issue != "" {
		gatewayData["issue"] = issue
	}
	return paymentdomain.Failure(message, mapErrorCode(op, resp.StatusCode, body.Name, issue), gatewayData)
}

func mapErrorCode(op operation, status int, name, issue string) string {
	switch strings.ToUpper(issue) {
	case "INSTRUMENT_DECLINED", "TRANSACTION_REFUSED", "CARD_DECLINED":
		return paymentdomain.CodeCardDeclined
	case "CARD_EXPIRED":
		return paymentdomain.CodeCardExpired
	case "PAYER_ACTION_REQUIRED", "ORDER_NOT_APPROVED":
		if op == opCapture {
			return paymentdomain.CodeCaptureFailed
		}
		return paymentdomain.CodeAuthenticationRequired
	case "CURRENCY_NOT_SUPPORTED", "CURRENCY_NOT_SUPPORTED_FOR_RECEIVER":
		return paymentdomain.CodeUnsupportedCurrency
	case "PAYMENT_SOURCE_INFO_CANNOT_BE_VERIFIED", "PAYEE_NOT_ENABLED_FOR_PAYMENT_SOURCE":
		return paymentdomain.CodeUnsupportedMethod
	case "REFUND_AMOUNT_EXCEEDED":
		return paymentdomain.CodeRefundAmountExceeded
	case "CAPTURE_FULLY_REFUNDED":
		return paymentdomain.CodeAlreadyRefunded
	case "MAX_VALUE_EXCEEDED", "AMOUNT_CANNOT_BE_ZERO", "DECIMAL_PRECISION":
		return paymentdomain.CodeAmountOutOfBounds
	}
	switch {
	case status == http.StatusNotFound || name == "RESOURCE_NOT_FOUND":
		return paymentdomain.CodeTransactionNotFound
	case op == opCapture:
		return paymentdomain.CodeCaptureFailed
	case op == opRefund:
		return paymentdomain.CodeRefundFailed
	case name == "INVALID_REQUEST" || name == "UNPROCESSABLE_ENTITY":
		return paymentdomain.CodeInvalidRequest
	default:
		return paymentdomain.CodePaymentFailed
	}
}

package domain

import "github.com/smallbiznis/givebridge/pkg/money"

// Normalised business failure codes. Callers branch on these without knowing
// any provider vocabulary.
const (
	CodeCardDeclined           = "CARD_DECLINED"
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeCardExpired            = "CARD_EXPIRED"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeUnsupportedMethod      = "UNSUPPORTED_METHOD"
	CodeUnsupportedCurrency    = "UNSUPPORTED_CURRENCY"
	CodeAmountOutOfBounds      = "AMOUNT_OUT_OF_BOUNDS"
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeTransactionNotFound    = "TRANSACTION_NOT_FOUND"
	CodeCaptureFailed          = "CAPTURE_FAILED"
	CodeRefundAmountExceeded   = "REFUND_AMOUNT_EXCEEDED"
	CodeAlreadyRefunded        = "ALREADY_REFUNDED"
	CodeRefundFailed           = "REFUND_FAILED"
	CodePaymentFailed          = "PAYMENT_FAILED"
)

// PaymentResult is the canonical outcome of any gateway operation.
// GatewayData is kept for audit only; business logic reads Status, Amount
// and TransactionID.
type PaymentResult struct {
	Success       bool
	TransactionID string
	IntentID      string
	Status        PaymentStatus
	Amount        money.Money
	RedirectURL   string
	GatewayData   map[string]any
	Metadata      map[string]any
	ErrorMessage  string
	ErrorCode     string
}

// Details carries the fields shared by Success and Pending results.
type Details struct {
	TransactionID string
	IntentID      string
	Status        PaymentStatus
	Amount        money.Money
	RedirectURL   string
	GatewayData   map[string]any
	Metadata      map[string]any
}

// Success reports money that moved (or was returned). Status defaults to
// COMPLETED.
func Success(d Details) PaymentResult {
	if d.Status == "" || d.Status.IsFailure() {
		d.Status = StatusCompleted
	}
	return d.result()
}

// Pending reports an accepted request whose outcome is not final yet.
func Pending(d Details) PaymentResult {
	switch d.Status {
	case StatusPending, StatusProcessing, StatusRequiresAction:
	default:
		d.Status = StatusPending
	}
	return d.result()
}

// Failure reports a business outcome failure. TransactionID stays empty.
func Failure(message, code string, gatewayData map[string]any) PaymentResult {
	if code == "" {
		code = CodePaymentFailed
	}
	return PaymentResult{
		Success:      false,
		Status:       StatusFailed,
		GatewayData:  gatewayData,
		ErrorMessage: message,
		ErrorCode:    code,
	}
}

// FromStatus picks the constructor matching d.Status. Failure statuses keep
// the provider identifiers for audit and report code.
func FromStatus(d Details, message, code string) PaymentResult {
	switch d.Status {
	case StatusCompleted, StatusRefunded:
		return Success(d)
	case StatusFailed, StatusCancelled:
		out := Failure(message, code, d.GatewayData)
		out.Status = d.Status
		out.IntentID = d.IntentID
		out.Amount = d.Amount
		out.Metadata = d.Metadata
		return out
	default:
		return Pending(d)
	}
}

func (d Details) result() PaymentResult {
	return PaymentResult{
		Success:       true,
		TransactionID: d.TransactionID,
		IntentID:      d.IntentID,
		Status:        d.Status,
		Amount:        d.Amount,
		RedirectURL:   d.RedirectURL,
		GatewayData:   d.GatewayData,
		Metadata:      d.Metadata,
	}
}

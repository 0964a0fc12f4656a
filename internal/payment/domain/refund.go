package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/givebridge/pkg/money"
)

// RefundRequest asks the provider to return funds of a captured transaction.
// The refund ceiling is owned by the caller's ledger; gateways only forward
// the request and report provider-side rejection.
type RefundRequest struct {
	TransactionID  string `validate:"required"`
	Amount         decimal.Decimal
	Currency       string `validate:"required,len=3"`
	Reason         string
	Metadata       map[string]any
	IdempotencyKey string
}

func (r RefundRequest) Money() (money.Money, error) {
	return money.New(r.Amount, r.Currency)
}

func (r RefundRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &ValidationError{Field: "RefundRequest", Tag: err.Error()}
	}
	m, err := r.Money()
	if err != nil {
		return &ValidationError{Field: "Amount", Tag: err.Error()}
	}
	if err := m.CheckPrecision(); err != nil {
		return &ValidationError{Field: "Amount", Tag: err.Error()}
	}
	if m.IsZero() {
		return &ValidationError{Field: "Amount", Tag: "gt=0"}
	}
	return nil
}

// Key returns the refund idempotency key. Without a caller key, two identical
// refund requests for the same transaction collapse into one provider refund.
func (r RefundRequest) Key() string {
	if key := strings.TrimSpace(r.IdempotencyKey); key != "" {
		return key + ":" + OpRefund
	}
	return DeriveKey(OpRefund, r.TransactionID, r.Amount.String(), strings.ToUpper(r.Currency), r.Reason)
}

package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/smallbiznis/givebridge/pkg/money"
)

// Logical payment methods a caller may request. Adapters translate them into
// their provider's own method identifiers.
const (
	MethodCard         = "card"
	MethodWallet       = "wallet"
	MethodApplePay     = "apple_pay"
	MethodGooglePay    = "google_pay"
	MethodBankRedirect = "bank_redirect"
	MethodIDEAL        = "ideal"
	MethodBancontact   = "bancontact"
	MethodSEPADebit    = "sepa_debit"
	MethodEPS          = "eps"
	MethodPrzelewy24   = "przelewy24"
	MethodBankTransfer = "bank_transfer"
	MethodPayPal       = "paypal"
)

// Operation names used to derive idempotency keys.
const (
	OpCreate  = "create"
	OpCapture = "capture"
	OpRefund  = "refund"
)

var idempotencyNamespace = uuid.MustParse("5b0f7c8e-3f0c-4c1a-9d52-3f86c1a0e6b1")

var validate = validator.New(validator.WithRequiredStructEnabled())

// PaymentIntent is a request to begin collecting a donation payment. It is
// consumed once by CreatePaymentIntent and never mutated.
type PaymentIntent struct {
	DonationID         string `validate:"required"`
	Amount             money.Money
	PaymentMethod      string `validate:"required"`
	CustomerID         string
	PaymentMethodID    string
	ReturnURL          string `validate:"omitempty,url"`
	CancelURL          string `validate:"omitempty,url"`
	Description        string
	Metadata           map[string]any
	CaptureImmediately bool
	IdempotencyKey     string
}

func (i PaymentIntent) Validate() error {
	if err := validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Field(), Tag: verrs[0].Tag()}
		}
		return err
	}
	m, err := money.New(i.Amount.Amount, i.Amount.Currency)
	if err != nil {
		return &ValidationError{Field: "Amount", Tag: err.Error()}
	}
	if err := m.CheckPrecision(); err != nil {
		return &ValidationError{Field: "Amount", Tag: err.Error()}
	}
	return nil
}

// Key returns the idempotency key for op. A caller supplied key wins;
// otherwise the key is derived from the donation id so a retried request
// carries the same key as the original.
func (i PaymentIntent) Key(op string) string {
	if key := strings.TrimSpace(i.IdempotencyKey); key != "" {
		return key + ":" + op
	}
	return DeriveKey(op, i.DonationID, i.Amount.Format(), i.Amount.Currency)
}

// DeriveKey builds a deterministic uuid v5 idempotency key from its parts.
func DeriveKey(op string, parts ...string) string {
	name := op + "|" + strings.Join(parts, "|")
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}

// ValidationError describes the first invalid field of a request.
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Tag
}

// Describe renders the outbound payment description with the configured
// prefix.
func (i PaymentIntent) Describe(prefix string) string {
	description := strings.TrimSpace(i.Description)
	if description == "" {
		description = "Donation " + i.DonationID
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return description
	}
	return prefix + " " + description
}

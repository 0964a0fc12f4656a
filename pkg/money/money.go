// Package money holds the exact decimal currency amount shared by every
// gateway component. Amounts are always major units; conversion to a
// provider's minor units happens at the adapter boundary only.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount  = errors.New("money: amount must not be negative")
	ErrInvalidCurrency = errors.New("money: currency must be a 3-letter ISO-4217 code")
	ErrInvalidAmount   = errors.New("money: amount is not a decimal number")
	ErrExcessPrecision = errors.New("money: amount has more decimals than the currency allows")
)

// zeroDecimal and threeDecimal list ISO-4217 currencies whose minor unit
// exponent differs from the default of 2.
var (
	zeroDecimal = map[string]struct{}{
		"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "ISK": {}, "JPY": {}, "KMF": {},
		"KRW": {}, "PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {},
		"XOF": {}, "XPF": {},
	}
	threeDecimal = map[string]struct{}{
		"BHD": {}, "IQD": {}, "JOD": {}, "KWD": {}, "LYD": {}, "OMR": {}, "TND": {},
	}
)

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New validates and normalises an amount and currency pair.
func New(amount decimal.Decimal, currency string) (Money, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{Amount: amount, Currency: code}, nil
}

// Parse builds Money from a decimal string such as "42.00".
func Parse(amount, currency string) (Money, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return New(value, currency)
}

// MustParse is Parse for constants and tests.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMinor converts an integer amount in the currency's minor unit.
func FromMinor(minor int64, currency string) (Money, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return New(decimal.New(minor, -Exponent(code)), code)
}

// NormalizeCurrency upper-cases and validates an ISO-4217 code.
func NormalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

// Exponent returns the number of minor-unit digits for the currency.
func Exponent(currency string) int32 {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if _, ok := zeroDecimal[code]; ok {
		return 0
	}
	if _, ok := threeDecimal[code]; ok {
		return 3
	}
	return 2
}

// CheckPrecision rejects amounts that cannot be expressed in whole minor
// units of the currency, such as 42.50 JPY or 42.005 EUR. Trailing zeros
// are accepted.
func (m Money) CheckPrecision() error {
	exp := Exponent(m.Currency)
	if !m.Amount.Equal(m.Amount.Truncate(exp)) {
		return fmt.Errorf("%w: %s allows %d", ErrExcessPrecision, m.Currency, exp)
	}
	return nil
}

// MinorUnits returns the amount in minor units, rounding half away from zero
// when the amount carries more precision than the currency allows.
func (m Money) MinorUnits() int64 {
	exp := Exponent(m.Currency)
	return m.Amount.Round(exp).Shift(exp).IntPart()
}

// Format renders the amount with exactly the currency's minor-unit digits.
func (m Money) Format() string {
	return m.Amount.StringFixed(Exponent(m.Currency))
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// GreaterThan compares amounts of the same currency.
func (m Money) GreaterThan(other Money) bool {
	return m.Amount.GreaterThan(other.Amount)
}

// Sub subtracts other from m. Both must share the currency.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("money: currency mismatch %s vs %s", m.Currency, other.Currency)
	}
	return New(m.Amount.Sub(other.Amount), m.Currency)
}

func (m Money) String() string {
	if m.Currency == "" {
		return m.Amount.String()
	}
	return m.Format() + " " + m.Currency
}

package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/smallbiznis/givebridge/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultConstructorsKeepSuccessConsistent(t *testing.T) {
	amount := money.MustParse("42.00", "EUR")

	ok := Success(Details{TransactionID: "tx_1", Amount: amount})
	assert.True(t, ok.Success)
	assert.Equal(t, StatusCompleted, ok.Status)

	forced := Success(Details{TransactionID: "tx_1", Status: StatusFailed})
	assert.Equal(t, StatusCompleted, forced.Status)

	pending := Pending(Details{IntentID: "pi_1", Status: StatusCompleted})
	assert.True(t, pending.Success)
	assert.Equal(t, StatusPending, pending.Status)

	action := Pending(Details{IntentID: "pi_1", Status: StatusRequiresAction, RedirectURL: "https://pay.example/approve"})
	assert.Equal(t, StatusRequiresAction, action.Status)
	assert.Equal(t, "https://pay.example/approve", action.RedirectURL)

	failed := Failure("card was declined", CodeCardDeclined, map[string]any{"decline_code": "generic_decline"})
	assert.False(t, failed.Success)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Empty(t, failed.TransactionID)
	assert.Equal(t, CodeCardDeclined, failed.ErrorCode)

	assert.Equal(t, CodePaymentFailed, Failure("boom", "", nil).ErrorCode)
}

func TestFromStatus(t *testing.T) {
	for _, status := range PaymentStatuses() {
		t.Run(status.String(), func(t *testing.T) {
			out := FromStatus(Details{TransactionID: "tx", Status: status}, "provider said no", CodeCaptureFailed)
			assert.Equal(t, status, out.Status)
			if out.Success {
				assert.False(t, out.Status.IsFailure())
			} else {
				assert.True(t, out.Status.IsFailure())
				assert.Equal(t, CodeCaptureFailed, out.ErrorCode)
			}
		})
	}
}

func TestStatusTableDefaultsToPending(t *testing.T) {
	table := StatusTable{"succeeded": StatusCompleted, "canceled": StatusCancelled}

	assert.Equal(t, StatusCompleted, table.Map("SUCCEEDED"))
	assert.Equal(t, StatusCancelled, table.Map(" canceled "))
	assert.Equal(t, StatusPending, table.Map("brand_new_state"))
	assert.Equal(t, StatusPending, table.Map(""))
	assert.ElementsMatch(t, []string{"succeeded", "canceled"}, table.Known())
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusRefunded.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCancelled.IsFailure())
	assert.False(t, StatusRefunded.IsFailure())
	assert.False(t, PaymentStatus("SETTLED").Valid())
}

func TestPaymentIntentValidate(t *testing.T) {
	intent := PaymentIntent{
		DonationID:    "don_1",
		Amount:        money.MustParse("42.00", "EUR"),
		PaymentMethod: MethodCard,
		ReturnURL:     "https://give.example/return",
	}
	require.NoError(t, intent.Validate())

	missing := intent
	missing.DonationID = ""
	var verr *ValidationError
	require.ErrorAs(t, missing.Validate(), &verr)
	assert.Equal(t, "DonationID", verr.Field)

	badURL := intent
	badURL.ReturnURL = "not a url"
	assert.Error(t, badURL.Validate())

	badCurrency := intent
	badCurrency.Amount.Currency = "EU"
	assert.Error(t, badCurrency.Validate())
}

func TestAmountPrecisionPerCurrency(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		cur     string
		wantErr bool
	}{
		{name: "zero decimal whole", amount: "4250", cur: "JPY"},
		{name: "zero decimal fraction", amount: "42.50", cur: "JPY", wantErr: true},
		{name: "two decimal cents", amount: "42.01", cur: "EUR"},
		{name: "two decimal sub cent", amount: "42.005", cur: "EUR", wantErr: true},
		{name: "three decimal fils", amount: "1.234", cur: "KWD"},
		{name: "three decimal sub fils", amount: "1.2345", cur: "KWD", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := PaymentIntent{
				DonationID:    "don_1",
				Amount:        money.MustParse(tt.amount, tt.cur),
				PaymentMethod: MethodCard,
			}
			refund := RefundRequest{
				TransactionID: "ch_1",
				Amount:        money.MustParse(tt.amount, tt.cur).Amount,
				Currency:      tt.cur,
			}
			if !tt.wantErr {
				assert.NoError(t, intent.Validate())
				assert.NoError(t, refund.Validate())
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, intent.Validate(), &verr)
			assert.Equal(t, "Amount", verr.Field)
			require.ErrorAs(t, refund.Validate(), &verr)
			assert.Equal(t, "Amount", verr.Field)
		})
	}
}

func TestIdempotencyKeys(t *testing.T) {
	intent := PaymentIntent{DonationID: "don_1", Amount: money.MustParse("42.00", "EUR")}

	assert.Equal(t, intent.Key(OpCreate), intent.Key(OpCreate))
	assert.NotEqual(t, intent.Key(OpCreate), intent.Key(OpCapture))

	intent.IdempotencyKey = "caller-key"
	assert.Equal(t, "caller-key:create", intent.Key(OpCreate))

	refund := RefundRequest{TransactionID: "ch_1", Currency: "EUR"}
	assert.Equal(t, refund.Key(), refund.Key())
}

func TestRefundRequestValidate(t *testing.T) {
	req := RefundRequest{TransactionID: "ch_1", Amount: money.MustParse("5", "EUR").Amount, Currency: "EUR"}
	require.NoError(t, req.Validate())

	zero := req
	zero.Amount = money.MustParse("0", "EUR").Amount
	assert.Error(t, zero.Validate())

	noTx := req
	noTx.TransactionID = ""
	assert.Error(t, noTx.Validate())
}

func TestIntegrationErrorMatchesCategoryAndCause(t *testing.T) {
	cause := fmt.Errorf("dial: %w", context.DeadlineExceeded)
	err := NewIntegrationError("stripe", "create_payment_intent", TransportCategory(cause), cause)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Equal(t, CategoryTimeout, CategoryOf(fmt.Errorf("wrapped: %w", err)))
	assert.Contains(t, err.Error(), "stripe create_payment_intent: timeout")

	plain := NewIntegrationError("mollie", "refund", TransportCategory(errors.New("connection reset")), nil)
	assert.ErrorIs(t, plain, ErrTransport)
	assert.Equal(t, Category(""), CategoryOf(errors.New("other")))
}

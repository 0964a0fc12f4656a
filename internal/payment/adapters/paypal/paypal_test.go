package paypal

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []paymentdomain.WebhookEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event paymentdomain.WebhookEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Events() []paymentdomain.WebhookEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]paymentdomain.WebhookEvent(nil), d.events...)
}

func newTestAdapter(t *testing.T, baseURL string, dispatcher paymentdomain.EventDispatcher) *Adapter {
	t.Helper()
	return newAdapterWithSecret(t, baseURL, testClientSecret, dispatcher)
}

func newAdapterWithSecret(t *testing.T, baseURL, secret string, dispatcher paymentdomain.EventDispatcher) *Adapter {
	t.Helper()
	gateway, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{
		Mode: paymentdomain.ModeSandbox,
		Credentials: map[string]string{
			"client_id":     testClientID,
			"client_secret": secret,
			"webhook_id":    testWebhookID,
		},
		DescriptionPrefix: "[GiveBridge]",
		HTTPTimeout:       2 * time.Second,
		BaseURL:           baseURL,
		Dispatcher:        dispatcher,
		Logger:            zap.NewNop(),
	})
	require.NoError(t, err)
	return gateway.(*Adapter)
}

func paypalDonation() paymentdomain.PaymentIntent {
	return paymentdomain.PaymentIntent{
		DonationID:         "don_9",
		Amount:             money.MustParse("25.00", "USD"),
		PaymentMethod:      paymentdomain.MethodPayPal,
		ReturnURL:          "https://give.example/return",
		CancelURL:          "https://give.example/cancel",
		CaptureImmediately: true,
	}
}

func transmission(sig string) http.Header {
	header := http.Header{}
	header.Set("PAYPAL-AUTH-ALGO", "SHA256withRSA")
	header.Set("PAYPAL-CERT-URL", "https://api-m.sandbox.paypal.com/v1/notifications/certs/CERT-1")
	header.Set("PAYPAL-TRANSMISSION-ID", "69cd13f0-d67a-11e5-baa3-778b53f4ae55")
	header.Set("PAYPAL-TRANSMISSION-SIG", sig)
	header.Set("PAYPAL-TRANSMISSION-TIME", "2026-10-15T10:06:00Z")
	return header
}

// approvedAndCaptured walks an order through approval and capture.
func approvedAndCaptured(t *testing.T, fake *fakePayPal, adapter *Adapter) paymentdomain.PaymentResult {
	t.Helper()
	created, err := adapter.CreatePaymentIntent(context.Background(), paypalDonation())
	require.NoError(t, err)
	fake.approve(created.IntentID)

	captured, err := adapter.CapturePayment(context.Background(), created.IntentID)
	require.NoError(t, err)
	require.True(t, captured.Success, captured.ErrorMessage)
	return captured
}

func TestFactoryValidatesCredentials(t *testing.T) {
	_, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{
		Credentials: map[string]string{"client_id": "id", "client_secret": "secret"},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)
}

func TestCreatePaymentIntent_RequiresPayerApproval(t *testing.T) {
	fake, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)

	result, err := adapter.CreatePaymentIntent(context.Background(), paypalDonation())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, paymentdomain.StatusRequiresAction, result.Status)
	assert.Equal(t, "ORDER-0001", result.TransactionID)
	assert.Equal(t, "ORDER-0001", result.IntentID)
	assert.Equal(t, "https://www.sandbox.paypal.com/checkoutnow?token=ORDER-0001", result.RedirectURL)
	assert.True(t, result.Amount.Equal(money.MustParse("25.00", "USD")))
	assert.Equal(t, "don_9", result.Metadata["donation_id"])

	assert.Equal(t, "CAPTURE", fake.lastBody["intent"])
	unit := fake.lastBody["purchase_units"].([]any)[0].(map[string]any)
	assert.Equal(t, "don_9", unit["custom_id"])
	assert.Equal(t, "[GiveBridge] Donation don_9", unit["description"])
	assert.Equal(t, map[string]any{"currency_code": "USD", "value": "25.00"}, unit["amount"])
	assert.Equal(t, paypalDonation().Key(paymentdomain.OpCreate), fake.headers.Get("PayPal-Request-Id"))
	assert.Equal(t, "return=representation", fake.headers.Get("Prefer"))
}

func TestTokenIsFetchedOnce(t *testing.T) {
	fake, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)

	for i := 0; i < 3; i++ {
		_, err := adapter.CreatePaymentIntent(context.Background(), paypalDonation())
		require.NoError(t, err)
	}
	assert.True(t, adapter.ValidateConfiguration(context.Background()))

	tokens, _, _ := fake.counts()
	assert.Equal(t, 1, tokens)
}

func TestRejectedCredentialsAreConfigErrors(t *testing.T) {
	_, server := newFakePayPal(t)
	adapter := newAdapterWithSecret(t, server.URL, "wrong", nil)

	_, err := adapter.CreatePaymentIntent(context.Background(), paypalDonation())
	require.Error(t, err)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)
	assert.Equal(t, paymentdomain.CategoryConfig, paymentdomain.CategoryOf(err))

	assert.False(t, adapter.ValidateConfiguration(context.Background()))
}

func TestValidateConfiguration_DetectsRevokedCredentials(t *testing.T) {
	fake, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)

	assert.True(t, adapter.ValidateConfiguration(context.Background()))

	fake.revoke()
	assert.False(t, adapter.ValidateConfiguration(context.Background()))
	tokens, _, _ := fake.counts()
	assert.Equal(t, 1, tokens, "the cached token is still valid locally")
}

func TestValidateConfiguration_UnknownWebhookID(t *testing.T) {
	_, server := newFakePayPal(t)
	gateway, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{
		Credentials: map[string]string{
			"client_id":     testClientID,
			"client_secret": testClientSecret,
			"webhook_id":    "WH-deleted",
		},
		BaseURL: server.URL,
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)
	assert.False(t, gateway.ValidateConfiguration(context.Background()))
}

func TestCreatePaymentIntent_UnsupportedInputs(t *testing.T) {
	_, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)

	intent := paypalDonation()
	intent.PaymentMethod = paymentdomain.MethodSEPADebit
	result, err := adapter.CreatePaymentIntent(context.Background(), intent)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, paymentdomain.CodeUnsupportedMethod, result.ErrorCode)

	intent = paypalDonation()
	intent.Amount = money.MustParse("500", "INR")
	result, err = adapter.CreatePaymentIntent(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.CodeUnsupportedCurrency, result.ErrorCode)
}

func TestCapturePayment_IsIdempotent(t *testing.T) {
	fake, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)

	first := approvedAndCaptured(t, fake, adapter)
	assert.Equal(t, paymentdomain.StatusCompleted, first.Status)
	assert.Equal(t, fake.firstCaptureID("ORDER-0001"), first.TransactionID)
	assert.Equal(t, "ORDER-0001", first.IntentID)
	assert.Equal(t, "don_9", first.Metadata["donation_id"])

	second, err := adapter.CapturePayment(context.Background(), "ORDER-0001")
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, paymentdomain.StatusCompleted, second.Status)

	_, captures, _ := fake.counts()
	assert.Equal(t, 1, captures)
}

func TestCapturePayment_AuthorizeThenCapture(t *testing.T) {
	fake, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)

	intent := paypalDonation()
	intent.CaptureImmediately = false
	created, err := adapter.CreatePaymentIntent(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, "AUTHORIZE", fake.lastBody["intent"])

	fake.approve(created.IntentID)
	captured, err := adapter.CapturePayment(context.Background(), created.IntentID)
	require.NoError(t, err)
	assert.True(t, captured.Success)
	assert.Equal(t, paymentdomain.StatusCompleted, captured.Status)
	assert.True(t, strings.HasPrefix(captured.TransactionID, "CAP-"))
	assert.Equal(t, created.IntentID, captured.IntentID)

	again, err := adapter.CapturePayment(context.Background(), created.IntentID)
	require.NoError(t, err)
	assert.Equal(t, captured.TransactionID, again.TransactionID)

	_, captures, _ := fake.counts()
	assert.Equal(t, 1, captures)
}

func TestCapturePayment_OrderStates(t *testing.T) {
	fake, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)

	created, err := adapter.CreatePaymentIntent(context.Background(), paypalDonation())
	require.NoError(t, err)

	waiting, err := adapter.CapturePayment(context.Background(), created.IntentID)
	require.NoError(t, err)
	assert.True(t, waiting.Success)
	assert.Equal(t, paymentdomain.StatusRequiresAction, waiting.Status)

	fake.setStatus(created.IntentID, "VOIDED")
	voided, err := adapter.CapturePayment(context.Background(), created.IntentID)
	require.NoError(t, err)
	assert.False(t, voided.Success)
	assert.Equal(t, paymentdomain.CodeCaptureFailed, voided.ErrorCode)

	unknown, err := adapter.CapturePayment(context.Background(), "ORDER-9999")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.CodeTransactionNotFound, unknown.ErrorCode)

	_, captures, _ := fake.counts()
	assert.Equal(t, 0, captures)
}

func TestRefundRoundTrip(t *testing.T) {
	fake, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)
	captured := approvedAndCaptured(t, fake, adapter)

	req := paymentdomain.RefundRequest{
		TransactionID: captured.TransactionID,
		Amount:        decimal.RequireFromString("10.00"),
		Currency:      "USD",
		Reason:        "donor request",
	}
	refunded, err := adapter.RefundPayment(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, refunded.Success)
	assert.Equal(t, paymentdomain.StatusRefunded, refunded.Status)
	assert.True(t, strings.HasPrefix(refunded.TransactionID, "REF-"))
	assert.Equal(t, captured.TransactionID, refunded.IntentID)
	assert.True(t, refunded.Amount.Equal(money.MustParse("10.00", "USD")))
	assert.Equal(t, req.Key(), fake.headers.Get("PayPal-Request-Id"))

	found, err := adapter.GetTransaction(context.Background(), refunded.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusRefunded, found.Status)
	assert.Equal(t, captured.TransactionID, found.IntentID)

	capture, err := adapter.GetTransaction(context.Background(), captured.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCompleted, capture.Status)
	assert.Equal(t, "PARTIALLY_REFUNDED", capture.GatewayData["status"])
}

func TestRefundExceedingCaptureIsBusinessFailure(t *testing.T) {
	fake, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)
	captured := approvedAndCaptured(t, fake, adapter)

	result, err := adapter.RefundPayment(context.Background(), paymentdomain.RefundRequest{
		TransactionID: captured.TransactionID,
		Amount:        decimal.RequireFromString("30.00"),
		Currency:      "USD",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, paymentdomain.CodeRefundAmountExceeded, result.ErrorCode)
	assert.Empty(t, result.TransactionID)

	full := paymentdomain.RefundRequest{
		TransactionID: captured.TransactionID,
		Amount:        decimal.RequireFromString("25.00"),
		Currency:      "USD",
	}
	result, err = adapter.RefundPayment(context.Background(), full)
	require.NoError(t, err)
	require.True(t, result.Success)

	full.IdempotencyKey = "second-attempt"
	result, err = adapter.RefundPayment(context.Background(), full)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.CodeAlreadyRefunded, result.ErrorCode)
}

func TestGetTransaction_Unknown(t *testing.T) {
	_, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)

	result, err := adapter.GetTransaction(context.Background(), "NOPE-1")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, paymentdomain.CodeTransactionNotFound, result.ErrorCode)
}

func TestMapErrorCode(t *testing.T) {
	assert.Equal(t, paymentdomain.CodeCardDeclined, mapErrorCode(opCreate, 422, "UNPROCESSABLE_ENTITY", "INSTRUMENT_DECLINED"))
	assert.Equal(t, paymentdomain.CodeAuthenticationRequired, mapErrorCode(opCreate, 422, "UNPROCESSABLE_ENTITY", "PAYER_ACTION_REQUIRED"))
	assert.Equal(t, paymentdomain.CodeCaptureFailed, mapErrorCode(opCapture, 422, "UNPROCESSABLE_ENTITY", "ORDER_NOT_APPROVED"))
	assert.Equal(t, paymentdomain.CodeUnsupportedCurrency, mapErrorCode(opCreate, 422, "UNPROCESSABLE_ENTITY", "CURRENCY_NOT_SUPPORTED"))
	assert.Equal(t, paymentdomain.CodeAmountOutOfBounds, mapErrorCode(opCreate, 422, "UNPROCESSABLE_ENTITY", "MAX_VALUE_EXCEEDED"))
	assert.Equal(t, paymentdomain.CodeTransactionNotFound, mapErrorCode(opRead, 404, "RESOURCE_NOT_FOUND", "INVALID_RESOURCE_ID"))
	assert.Equal(t, paymentdomain.CodeRefundFailed, mapErrorCode(opRefund, 422, "UNPROCESSABLE_ENTITY", "TRANSACTION_REFUSED_BY_SELLER"))
	assert.Equal(t, paymentdomain.CodeInvalidRequest, mapErrorCode(opCreate, 400, "INVALID_REQUEST", ""))
	assert.Equal(t, paymentdomain.CodePaymentFailed, mapErrorCode(opCreate, 422, "UNPROCESSABLE_ENTITY", ""))
}

func TestStatusMappingIsTotal(t *testing.T) {
	for _, table := range []paymentdomain.StatusTable{orderStatuses, captureStatuses, refundStatuses} {
		for _, status := range table.Known() {
			assert.True(t, table.Map(status).Valid(), status)
		}
	}
	assert.Equal(t, paymentdomain.StatusPending, MapOrderStatus("SOMETHING_NEW"))
	assert.Equal(t, paymentdomain.StatusPending, MapCaptureStatus(""))
	assert.Equal(t, paymentdomain.StatusRequiresAction, MapOrderStatus("PAYER_ACTION_REQUIRED"))
	assert.Equal(t, paymentdomain.StatusRefunded, MapRefundStatus("COMPLETED"))
}

func TestHandleWebhook_RejectsUnverifiedTransmissions(t *testing.T) {
	fake, server := newFakePayPal(t)
	dispatcher := &recordingDispatcher{}
	adapter := newTestAdapter(t, server.URL, dispatcher)
	payload := []byte(`{"id":"WH-EVT-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{}}`)

	missing := transmission(validSignature)
	missing.Del("PAYPAL-CERT-URL")
	err := adapter.HandleWebhook(context.Background(), payload, missing)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
	_, _, verifies := fake.counts()
	assert.Equal(t, 0, verifies)

	err = adapter.HandleWebhook(context.Background(), payload, transmission("forged"))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	err = adapter.HandleWebhook(context.Background(), []byte("not json"), transmission(validSignature))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	assert.Empty(t, dispatcher.Events())
}

func TestHandleWebhook_CaptureCompleted(t *testing.T) {
	_, server := newFakePayPal(t)
	dispatcher := &recordingDispatcher{}
	adapter := newTestAdapter(t, server.URL, dispatcher)

	payload := []byte(`{
		"id": "WH-EVT-2",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"create_time": "2026-10-15T10:06:00Z",
		"resource": {
			"id": "CAP-77",
			"status": "COMPLETED",
			"amount": {"currency_code": "USD", "value": "25.00"},
			"custom_id": "don_9",
			"supplementary_data": {"related_ids": {"order_id": "ORDER-77"}}
		}
	}`)
	require.NoError(t, adapter.HandleWebhook(context.Background(), payload, transmission(validSignature)))

	events := dispatcher.Events()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, "WH-EVT-2", event.EventID)
	assert.Equal(t, paymentdomain.EventPaymentSucceeded, event.Type)
	assert.Equal(t, "CAP-77", event.Result.TransactionID)
	assert.Equal(t, "ORDER-77", event.Result.IntentID)
	assert.Equal(t, "don_9", event.Result.Metadata["donation_id"])
	assert.Equal(t, paymentdomain.StatusCompleted, event.Result.Status)
	assert.True(t, event.OccurredAt.Equal(time.Date(2026, 10, 15, 10, 6, 0, 0, time.UTC)))
}

func TestHandleWebhook_DeniedAndDispute(t *testing.T) {
	fake, server := newFakePayPal(t)
	dispatcher := &recordingDispatcher{}
	adapter := newTestAdapter(t, server.URL, dispatcher)
	captured := approvedAndCaptured(t, fake, adapter)

	denied := []byte(`{"id":"WH-EVT-3","event_type":"PAYMENT.CAPTURE.DENIED","resource":{"id":"CAP-88","status":"DECLINED","amount":{"currency_code":"USD","value":"5.00"}}}`)
	require.NoError(t, adapter.HandleWebhook(context.Background(), denied, transmission(validSignature)))

	dispute := []byte(`{"id":"WH-EVT-4","event_type":"CUSTOMER.DISPUTE.CREATED","resource":{"dispute_id":"PP-D-1","reason":"UNAUTHORISED","dispute_amount":{"currency_code":"USD","value":"25.00"},"disputed_transactions":[{"seller_transaction_id":"` + captured.TransactionID + `"}]}}`)
	require.NoError(t, adapter.HandleWebhook(context.Background(), dispute, transmission(validSignature)))

	events := dispatcher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, paymentdomain.EventPaymentFailed, events[0].Type)
	assert.False(t, events[0].Result.Success)
	assert.Equal(t, paymentdomain.CodeCardDeclined, events[0].Result.ErrorCode)

	assert.Equal(t, paymentdomain.EventDisputeCreated, events[1].Type)
	assert.Equal(t, captured.TransactionID, events[1].Result.TransactionID)
	assert.Equal(t, "PP-D-1", events[1].Result.GatewayData["dispute_id"])
	assert.Equal(t, "25.00", events[1].Result.GatewayData["dispute_amount"])
}

func TestHandleWebhook_RecurringAndIgnored(t *testing.T) {
	_, server := newFakePayPal(t)
	dispatcher := &recordingDispatcher{}
	adapter := newTestAdapter(t, server.URL, dispatcher)

	sale := []byte(`{"id":"WH-EVT-5","event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"SALE-1","state":"completed","billing_agreement_id":"I-BW452GLLEP1G","amount":{"total":"10.00","currency":"EUR"}}}`)
	require.NoError(t, adapter.HandleWebhook(context.Background(), sale, transmission(validSignature)))

	ignored := []byte(`{"id":"WH-EVT-6","event_type":"BILLING.PLAN.CREATED","resource":{}}`)
	require.NoError(t, adapter.HandleWebhook(context.Background(), ignored, transmission(validSignature)))

	events := dispatcher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, paymentdomain.EventRecurringPaid, events[0].Type)
	assert.Equal(t, "SALE-1", events[0].Result.TransactionID)
	assert.True(t, events[0].Result.Amount.Equal(money.MustParse("10.00", "EUR")))
	assert.Equal(t, "I-BW452GLLEP1G", events[0].Result.GatewayData["billing_agreement_id"])
}

func TestHandleWebhook_MalformedAmountIsRejected(t *testing.T) {
	_, server := newFakePayPal(t)
	dispatcher := &recordingDispatcher{}
	adapter := newTestAdapter(t, server.URL, dispatcher)

	payloads := [][]byte{
		[]byte(`{"id":"WH-EVT-7","event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"SALE-2","state":"completed","amount":{"total":"ten","currency":"EUR"}}}`),
		[]byte(`{"id":"WH-EVT-8","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-9","status":"COMPLETED","amount":{"currency_code":"USD","value":"2 5.00"}}}`),
		[]byte(`{"id":"WH-EVT-9","event_type":"CUSTOMER.DISPUTE.CREATED","resource":{"dispute_id":"PP-D-2","dispute_amount":{"currency_code":"XX","value":"25.00"},"disputed_transactions":[{"seller_transaction_id":"CAP-9"}]}}`),
	}
	for _, payload := range payloads {
		err := adapter.HandleWebhook(context.Background(), payload, transmission(validSignature))
		assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload, string(payload))
	}
	assert.Empty(t, dispatcher.Events())
}

func TestHandleWebhook_MissingCreateTimeLeavesZeroTime(t *testing.T) {
	_, server := newFakePayPal(t)
	dispatcher := &recordingDispatcher{}
	adapter := newTestAdapter(t, server.URL, dispatcher)

	payload := []byte(`{"id":"WH-EVT-10","event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"SALE-3","state":"completed","amount":{"total":"10.00","currency":"EUR"}}}`)
	require.NoError(t, adapter.HandleWebhook(context.Background(), payload, transmission(validSignature)))

	events := dispatcher.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].OccurredAt.IsZero())
}

func TestGetTransaction_MalformedAmountIsDecodeError(t *testing.T) {
	fake, server := newFakePayPal(t)
	adapter := newTestAdapter(t, server.URL, nil)

	created, err := adapter.CreatePaymentIntent(context.Background(), paypalDonation())
	require.NoError(t, err)
	fake.mu.Lock()
	fake.orders[created.IntentID].PurchaseUnits[0].Amount.Value = "twenty-five"
	fake.mu.Unlock()

	_, err = adapter.GetTransaction(context.Background(), created.IntentID)
	require.Error(t, err)
	assert.ErrorIs(t, err, paymentdomain.ErrDecode)
	assert.Equal(t, paymentdomain.CategoryDecode, paymentdomain.CategoryOf(err))
}

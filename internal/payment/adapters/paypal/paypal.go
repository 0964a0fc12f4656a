package paypal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/givebridge/internal/payment/adapters/transport"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/money"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	providerName   = "paypal"
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"
)

var methods = map[string]struct{}{
	paymentdomain.MethodPayPal: {},
	paymentdomain.MethodWallet: {},
}

var supportedCurrencies = []string{
	"USD", "EUR", "GBP", "CAD", "AUD", "CHF", "SEK", "NOK", "DKK", "PLN", "CZK", "HUF", "JPY", "NZD",
}

var _ paymentdomain.Gateway = (*Adapter)(nil)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	clientID := cfg.Credential("client_id")
	clientSecret := cfg.Credential("client_secret")
	webhookID := cfg.Credential("webhook_id")
	if clientID == "" || clientSecret == "" || webhookID == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sandboxBaseURL
		if cfg.Mode == paymentdomain.ModeLive {
			baseURL = liveBaseURL
		}
	}
	log := cfg.Log()

	adapter := &Adapter{
		webhookID:         webhookID,
		descriptionPrefix: cfg.DescriptionPrefix,
		dispatcher:        cfg.Dispatcher,
		log:               log,
	}
	adapter.api = transport.New(transport.Options{
		Provider:          providerName,
		BaseURL:           baseURL,
		Timeout:           cfg.Timeout(),
		IdempotencyHeader: "PayPal-Request-Id",
		Headers:           map[string]string{"Prefer": "return=representation"},
		Authorize:         adapter.authorize,
		Logger:            log,
	})

	oauth := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     strings.TrimRight(baseURL, "/") + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// The token source outlives any single request; it fetches through the
	// adapter's bounded client and caches the token until it expires.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, adapter.api.HTTPClient())
	adapter.tokens = oauth.TokenSource(tokenCtx)

	return adapter, nil
}

// Adapter talks to the PayPal Orders v2 API. The OAuth token is shared by all
// calls and refreshed on expiry.
type Adapter struct {
	api               *transport.Caller
	tokens            oauth2.TokenSource
	webhookID         string
	descriptionPrefix string
	dispatcher        paymentdomain.EventDispatcher
	log               *zap.Logger
}

func (a *Adapter) Name() string {
	return providerName
}

func (a *Adapter) Supports(method string) bool {
	_, ok := methods[strings.ToLower(strings.TrimSpace(method))]
	return ok
}

func (a *Adapter) SupportedCurrencies() []string {
	return append([]string(nil), supportedCurrencies...)
}

func (a *Adapter) authorize(_ context.Context, req *http.Request) error {
	token, err := a.tokens.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			return fmt.Errorf("%w: %v", paymentdomain.ErrInvalidConfig, err)
		}
		return err
	}
	token.SetAuthHeader(req)
	return nil
}

func (a *Adapter) CreatePaymentIntent(ctx context.Context, intent paymentdomain.PaymentIntent) (paymentdomain.PaymentResult, error) {
	if !a.Supports(intent.PaymentMethod) {
		return paymentdomain.Failure("payment method "+intent.PaymentMethod+" is not supported", paymentdomain.CodeUnsupportedMethod, nil), nil
	}
	if !supportsCurrency(intent.Amount.Currency) {
		return paymentdomain.Failure("currency "+intent.Amount.Currency+" is not supported", paymentdomain.CodeUnsupportedCurrency, nil), nil
	}

	orderIntent := "AUTHORIZE"
	if intent.CaptureImmediately {
		orderIntent = "CAPTURE"
	}
	body := orderRequest{
		Intent: orderIntent,
		PurchaseUnits: []purchaseUnitRequest{{
			ReferenceID: intent.DonationID,
			CustomID:    intent.DonationID,
			Description: truncate(intent.Describe(a.descriptionPrefix), 127),
			Amount:      amountFrom(intent.Amount),
		}},
		PaymentSource: &paymentSource{PayPal: &paypalSource{ExperienceContext: experienceContext{
			ReturnURL:          intent.ReturnURL,
			CancelURL:          intent.CancelURL,
			UserAction:         "PAY_NOW",
			ShippingPreference: "NO_SHIPPING",
		}}},
	}

	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "create_payment_intent",
		Method:         http.MethodPost,
		Path:           "/v2/checkout/orders",
		JSON:           body,
		IdempotencyKey: intent.Key(paymentdomain.OpCreate),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opCreate), nil
	}

	var created order
	if err := a.api.Decode("create_payment_intent", resp, &created); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := orderResult(created, paymentdomain.CodePaymentFailed)
	return a.mapped("create_payment_intent", result, err)
}

// CapturePayment reads the order first. A completed order is reported from
// that read; an approved order is captured once.
func (a *Adapter) CapturePayment(ctx context.Context, intentID string) (paymentdomain.PaymentResult, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return paymentdomain.Failure("order id is required", paymentdomain.CodeInvalidRequest, nil), nil
	}

	current, failure, err := a.fetchOrder(ctx, "capture_payment", intentID)
	if err != nil || failure != nil {
		return deref(failure), err
	}

	switch strings.ToUpper(current.Status) {
	case "COMPLETED":
		if auth := current.pendingAuthorization(); auth != nil {
			return a.captureAuthorization(ctx, *current, auth.ID)
		}
		result, err := orderResult(*current, paymentdomain.CodeCaptureFailed)
		return a.mapped("capture_payment", result, err)
	case "APPROVED":
		if strings.EqualFold(current.Intent, "AUTHORIZE") {
			return a.authorizeAndCapture(ctx, *current)
		}
		return a.captureOrder(ctx, *current)
	case "VOIDED":
		return paymentdomain.Failure("order "+intentID+" was voided", paymentdomain.CodeCaptureFailed, map[string]any{"order_id": intentID}), nil
	default:
		result, err := orderResult(*current, paymentdomain.CodeCaptureFailed)
		return a.mapped("capture_payment", result, err)
	}
}

func (a *Adapter) captureOrder(ctx context.Context, current order) (paymentdomain.PaymentResult, error) {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "capture_payment",
		Method:         http.MethodPost,
		Path:           "/v2/checkout/orders/" + url.PathEscape(current.ID) + "/capture",
		JSON:           map[string]any{},
		IdempotencyKey: paymentdomain.DeriveKey(paymentdomain.OpCapture, current.ID),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		if hasIssue(resp, "ORDER_ALREADY_CAPTURED") {
			return a.GetTransaction(ctx, current.ID)
		}
		return failureFromResponse(resp, opCapture), nil
	}

	var captured order
	if err := a.api.Decode("capture_payment", resp, &captured); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := orderResult(captured, paymentdomain.CodeCaptureFailed)
	return a.mapped("capture_payment", result, err)
}

func (a *Adapter) authorizeAndCapture(ctx context.Context, current order) (paymentdomain.PaymentResult, error) {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "authorize_payment",
		Method:         http.MethodPost,
		Path:           "/v2/checkout/orders/" + url.PathEscape(current.ID) + "/authorize",
		JSON:           map[string]any{},
		IdempotencyKey: paymentdomain.DeriveKey("authorize", current.ID),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opCapture), nil
	}

	var authorized order
	if err := a.api.Decode("authorize_payment", resp, &authorized); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	auth := authorized.pendingAuthorization()
	if auth == nil {
		result, err := orderResult(authorized, paymentdomain.CodeCaptureFailed)
		return a.mapped("authorize_payment", result, err)
	}
	return a.captureAuthorization(ctx, authorized, auth.ID)
}

func (a *Adapter) captureAuthorization(ctx context.Context, current order, authorizationID string) (paymentdomain.PaymentResult, error) {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "capture_payment",
		Method:         http.MethodPost,
		Path:           "/v2/payments/authorizations/" + url.PathEscape(authorizationID) + "/capture",
		JSON:           map[string]any{"final_capture": true},
		IdempotencyKey: paymentdomain.DeriveKey(paymentdomain.OpCapture, authorizationID),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opCapture), nil
	}

	var captured capture
	if err := a.api.Decode("capture_payment", resp, &captured); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := captureResult(captured, current.ID)
	if err != nil {
		return a.mapped("capture_payment", result, err)
	}
	if result.Metadata == nil {
		result.Metadata = current.metadata()
	}
	return result, nil
}

func (a *Adapter) RefundPayment(ctx context.Context, req paymentdomain.RefundRequest) (paymentdomain.PaymentResult, error) {
	amount, err := req.Money()
	if err != nil || strings.TrimSpace(req.TransactionID) == "" {
		return paymentdomain.Failure("refund request is invalid", paymentdomain.CodeInvalidRequest, nil), nil
	}

	body := refundRequest{
		Amount:      amountFrom(amount),
		NoteToPayer: truncate(req.Reason, 255),
	}

	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "refund_payment",
		Method:         http.MethodPost,
		Path:           "/v2/payments/captures/" + url.PathEscape(req.TransactionID) + "/refund",
		JSON:           body,
		IdempotencyKey: req.Key(),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opRefund), nil
	}

	var out refund
	if err := a.api.Decode("refund_payment", resp, &out); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := refundResult(out, req.TransactionID)
	return a.mapped("refund_payment", result, err)
}

// GetTransaction resolves orders, then captures, then refunds.
func (a *Adapter) GetTransaction(ctx context.Context, transactionID string) (paymentdomain.PaymentResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return paymentdomain.Failure("transaction id is required", paymentdomain.CodeInvalidRequest, nil), nil
	}

	current, failure, err := a.fetchOrder(ctx, "get_transaction", transactionID)
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if failure == nil {
		result, err := orderResult(*current, paymentdomain.CodePaymentFailed)
		return a.mapped("get_transaction", result, err)
	}
	if failure.ErrorCode != paymentdomain.CodeTransactionNotFound {
		return *failure, nil
	}

	var captured capture
	failure, err = a.get(ctx, "/v2/payments/captures/"+url.PathEscape(transactionID), &captured)
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if failure == nil {
		result, err := captureResult(captured, "")
		return a.mapped("get_transaction", result, err)
	}
	if failure.ErrorCode != paymentdomain.CodeTransactionNotFound {
		return *failure, nil
	}

	var found refund
	failure, err = a.get(ctx, "/v2/payments/refunds/"+url.PathEscape(transactionID), &found)
	if err != nil || failure != nil {
		return deref(failure), err
	}
	result, err := refundResult(found, found.captureID())
	return a.mapped("get_transaction", result, err)
}

// ValidateConfiguration reads the configured webhook with the current token,
// so revoked credentials and a wrong webhook id both fail the check.
func (a *Adapter) ValidateConfiguration(ctx context.Context) bool {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:     "validate_configuration",
		Method: http.MethodGet,
		Path:   "/v1/notifications/webhooks/" + url.PathEscape(a.webhookID),
	})
	if err != nil {
		a.log.Warn("paypal configuration check failed", zap.Error(err))
		return false
	}
	if !resp.OK() {
		a.log.Warn("paypal configuration check rejected", zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

func (a *Adapter) fetchOrder(ctx context.Context, op string, orderID string) (*order, *paymentdomain.PaymentResult, error) {
	var out order
	resp, err := a.api.Do(ctx, transport.Request{
		Op:     op,
		Method: http.MethodGet,
		Path:   "/v2/checkout/orders/" + url.PathEscape(orderID),
	})
	if err != nil {
		return nil, nil, err
	}
	if !resp.OK() {
		failure := failureFromResponse(resp, opRead)
		return nil, &failure, nil
	}
	if err := a.api.Decode(op, resp, &out); err != nil {
		return nil, nil, err
	}
	return &out, nil, nil
}

func (a *Adapter) get(ctx context.Context, path string, out any) (*paymentdomain.PaymentResult, error) {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:     "get_transaction",
		Method: http.MethodGet,
		Path:   path,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		failure := failureFromResponse(resp, opRead)
		return &failure, nil
	}
	return nil, a.api.Decode("get_transaction", resp, out)
}

func supportsCurrency(currency string) bool {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	for _, code := range supportedCurrencies {
		if code == currency {
			return true
		}
	}
	return false
}

func amountFrom(m money.Money) amount {
	return amount{CurrencyCode: m.Currency, Value: m.Format()}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

// mapped reports a payload that decoded but could not be mapped onto the
// canonical model as an undecodable answer.
func (a *Adapter) mapped(op string, result paymentdomain.PaymentResult, err error) (paymentdomain.PaymentResult, error) {
	if err != nil {
		return paymentdomain.PaymentResult{}, a.api.Fail(op, paymentdomain.CategoryDecode, err)
	}
	return result, nil
}

func deref(result *paymentdomain.PaymentResult) paymentdomain.PaymentResult {
	if result == nil {
		return paymentdomain.PaymentResult{}
	}
	return *result
}

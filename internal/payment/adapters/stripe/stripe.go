package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/givebridge/internal/payment/adapters/transport"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/money"
	"go.uber.org/zap"
)

const (
	providerName   = "stripe"
	defaultBaseURL = "https://api.stripe.com"
	apiVersion     = "2024-06-20"
)

// methodTypes maps logical methods to Stripe payment_method_types. Wallets
// ride on the card rail.
var methodTypes = map[string]string{
	paymentdomain.MethodCard:       "card",
	paymentdomain.MethodWallet:     "card",
	paymentdomain.MethodApplePay:   "card",
	paymentdomain.MethodGooglePay:  "card",
	paymentdomain.MethodSEPADebit:  "sepa_debit",
	paymentdomain.MethodIDEAL:      "ideal",
	paymentdomain.MethodBancontact: "bancontact",
	paymentdomain.MethodEPS:        "eps",
	paymentdomain.MethodPrzelewy24: "p24",
}

var supportedCurrencies = []string{
	"USD", "EUR", "GBP", "CHF", "SEK", "NOK", "DKK", "PLN", "CZK", "HUF", "CAD", "AUD", "NZD", "JPY",
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
	secretKey := cfg.Credential("secret_key")
	webhookSecret := cfg.Credential("webhook_secret")
	if secretKey == "" || webhookSecret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if cfg.Mode == paymentdomain.ModeLive && strings.HasPrefix(secretKey, "sk_test_") {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if cfg.Mode != paymentdomain.ModeLive && strings.HasPrefix(secretKey, "sk_live_") {
		return nil, paymentdomain.ErrInvalidConfig
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	log := cfg.Log()

	return &Adapter{
		api: transport.New(transport.Options{
			Provider:          providerName,
			BaseURL:           baseURL,
			Timeout:           cfg.Timeout(),
			IdempotencyHeader: "Idempotency-Key",
			Headers:           map[string]string{"Stripe-Version": apiVersion},
			Authorize:         transport.Bearer(secretKey),
			Logger:            log,
		}),
		webhookSecret:     webhookSecret,
		descriptionPrefix: cfg.DescriptionPrefix,
		dispatcher:        cfg.Dispatcher,
		log:               log,
		now:               time.Now,
	}, nil
}

// Adapter talks to the Stripe PaymentIntents API. It holds no per-payment
// state and is safe for concurrent use.
type Adapter struct {
	api               *transport.Caller
	webhookSecret     string
	descriptionPrefix string
	dispatcher        paymentdomain.EventDispatcher
	log               *zap.Logger
	now               func() time.Time
}

func (a *Adapter) Name() string {
	return providerName
}

func (a *Adapter) Supports(method string) bool {
	_, ok := methodTypes[strings.ToLower(strings.TrimSpace(method))]
	return ok
}

func (a *Adapter) SupportedCurrencies() []string {
	return append([]string(nil), supportedCurrencies...)
}

func (a *Adapter) CreatePaymentIntent(ctx context.Context, intent paymentdomain.PaymentIntent) (paymentdomain.PaymentResult, error) {
	methodType, ok := methodTypes[strings.ToLower(strings.TrimSpace(intent.PaymentMethod))]
	if !ok {
		return paymentdomain.Failure("payment method "+intent.PaymentMethod+" is not supported", paymentdomain.CodeUnsupportedMethod, nil), nil
	}
	if !supportsCurrency(intent.Amount.Currency) {
		return paymentdomain.Failure("currency "+intent.Amount.Currency+" is not supported", paymentdomain.CodeUnsupportedCurrency, nil), nil
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(intent.Amount.MinorUnits(), 10))
	form.Set("currency", strings.ToLower(intent.Amount.Currency))
	form.Set("payment_method_types[]", methodType)
	form.Set("description", intent.Describe(a.descriptionPrefix))
	form.Set("metadata[donation_id]", intent.DonationID)
	for key, value := range transport.FlattenMetadata(intent.Metadata) {
		if key == "donation_id" {
			continue
		}
		form.Set("metadata["+key+"]", value)
	}
	if intent.CaptureImmediately {
		form.Set("capture_method", "automatic")
	} else {
		form.Set("capture_method", "manual")
	}
	if intent.CustomerID != "" {
		form.Set("customer", intent.CustomerID)
	}
	if intent.PaymentMethodID != "" {
		form.Set("payment_method", intent.PaymentMethodID)
		form.Set("confirm", "true")
		if intent.ReturnURL != "" {
			form.Set("return_url", intent.ReturnURL)
		}
	}

	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "create_payment_intent",
		Method:         http.MethodPost,
		Path:           "/v1/payment_intents",
		Form:           form,
		IdempotencyKey: intent.Key(paymentdomain.OpCreate),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opCreate), nil
	}

	var pi stripePaymentIntent
	if err := a.api.Decode("create_payment_intent", resp, &pi); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := intentResult(pi, paymentdomain.CodePaymentFailed)
	return a.mapped("create_payment_intent", result, err)
}

// CapturePayment reads the intent first. An intent that already succeeded is
// reported from that read without a second capture request. An intent still
// waiting for the payer is not capturable and yields CAPTURE_FAILED.
func (a *Adapter) CapturePayment(ctx context.Context, intentID string) (paymentdomain.PaymentResult, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return paymentdomain.Failure("intent id is required", paymentdomain.CodeInvalidRequest, nil), nil
	}

	current, failure, err := a.fetchIntent(ctx, "capture_payment", intentID)
	if err != nil || failure != nil {
		return deref(failure), err
	}

	switch current.Status {
	case "requires_capture":
	case "requires_payment_method", "requires_confirmation", "requires_action":
		out := paymentdomain.Failure("payment intent is "+current.Status+" and cannot be captured", paymentdomain.CodeCaptureFailed, map[string]any{
			"payment_intent_id": current.ID,
			"status":            current.Status,
		})
		out.IntentID = current.ID
		return out, nil
	default:
		result, err := intentResult(*current, paymentdomain.CodeCaptureFailed)
		return a.mapped("capture_payment", result, err)
	}

	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "capture_payment",
		Method:         http.MethodPost,
		Path:           "/v1/payment_intents/" + url.PathEscape(intentID) + "/capture",
		Form:           url.Values{},
		IdempotencyKey: paymentdomain.DeriveKey(paymentdomain.OpCapture, intentID),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opCapture), nil
	}

	var captured stripePaymentIntent
	if err := a.api.Decode("capture_payment", resp, &captured); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := intentResult(captured, paymentdomain.CodeCaptureFailed)
	return a.mapped("capture_payment", result, err)
}

func (a *Adapter) RefundPayment(ctx context.Context, req paymentdomain.RefundRequest) (paymentdomain.PaymentResult, error) {
	amount, err := req.Money()
	if err != nil || strings.TrimSpace(req.TransactionID) == "" {
		return paymentdomain.Failure("refund request is invalid", paymentdomain.CodeInvalidRequest, nil), nil
	}

	form := url.Values{}
	if strings.HasPrefix(req.TransactionID, "ch_") {
		form.Set("charge", req.TransactionID)
	} else {
		form.Set("payment_intent", req.TransactionID)
	}
	form.Set("amount", strconv.FormatInt(amount.MinorUnits(), 10))
	if reason, ok := refundReasons[strings.ToLower(strings.TrimSpace(req.Reason))]; ok {
		form.Set("reason", reason)
	} else if req.Reason != "" {
		form.Set("metadata[reason]", req.Reason)
	}
	for key, value := range transport.FlattenMetadata(req.Metadata) {
		form.Set("metadata["+key+"]", value)
	}

	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "refund_payment",
		Method:         http.MethodPost,
		Path:           "/v1/refunds",
		Form:           form,
		IdempotencyKey: req.Key(),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opRefund), nil
	}

	var refund stripeRefund
	if err := a.api.Decode("refund_payment", resp, &refund); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := refundResult(refund)
	return a.mapped("refund_payment", result, err)
}

// GetTransaction resolves payment intents, charges and refunds by id prefix.
func (a *Adapter) GetTransaction(ctx context.Context, transactionID string) (paymentdomain.PaymentResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return paymentdomain.Failure("transaction id is required", paymentdomain.CodeInvalidRequest, nil), nil
	}

	switch {
	case strings.HasPrefix(transactionID, "ch_"), strings.HasPrefix(transactionID, "py_"):
		var charge stripeCharge
		failure, err := a.get(ctx, "/v1/charges/"+url.PathEscape(transactionID), &charge)
		if err != nil || failure != nil {
			return deref(failure), err
		}
		result, err := chargeResult(charge)
		return a.mapped("get_transaction", result, err)
	case strings.HasPrefix(transactionID, "re_"):
		var refund stripeRefund
		failure, err := a.get(ctx, "/v1/refunds/"+url.PathEscape(transactionID), &refund)
		if err != nil || failure != nil {
			return deref(failure), err
		}
		result, err := refundResult(refund)
		return a.mapped("get_transaction", result, err)
	default:
		pi, failure, err := a.fetchIntent(ctx, "get_transaction", transactionID)
		if err != nil || failure != nil {
			return deref(failure), err
		}
		result, err := intentResult(*pi, paymentdomain.CodePaymentFailed)
		return a.mapped("get_transaction", result, err)
	}
}

func (a *Adapter) ValidateConfiguration(ctx context.Context) bool {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:     "validate_configuration",
		Method: http.MethodGet,
		Path:   "/v1/balance",
	})
	if err != nil {
		a.log.Warn("stripe configuration check failed", zap.Error(err))
		return false
	}
	return resp.OK()
}

func (a *Adapter) fetchIntent(ctx context.Context, op string, intentID string) (*stripePaymentIntent, *paymentdomain.PaymentResult, error) {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:     op,
		Method: http.MethodGet,
		Path:   "/v1/payment_intents/" + url.PathEscape(intentID),
	})
	if err != nil {
		return nil, nil, err
	}
	if !resp.OK() {
		failure := failureFromResponse(resp, opRead)
		return nil, &failure, nil
	}
	var pi stripePaymentIntent
	if err := a.api.Decode(op, resp, &pi); err != nil {
		return nil, nil, err
	}
	return &pi, nil, nil
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

func amountOf(minor int64, currency string) (money.Money, error) {
	m, err := money.FromMinor(minor, currency)
	if err != nil {
		return money.Money{}, fmt.Errorf("amount %d %q: %w", minor, currency, err)
	}
	return m, nil
}

// mapped reports a response that decoded but could not be mapped onto the
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

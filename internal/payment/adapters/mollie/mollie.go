package mollie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/givebridge/internal/payment/adapters/transport"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/money"
	"go.uber.org/zap"
)

const (
	providerName   = "mollie"
	defaultBaseURL = "https://api.mollie.com"
)

// methods maps logical methods to Mollie method ids. An empty id lets the
// hosted checkout offer every bank method enabled on the profile.
var methods = map[string]string{
	paymentdomain.MethodIDEAL:        "ideal",
	paymentdomain.MethodBancontact:   "bancontact",
	paymentdomain.MethodEPS:          "eps",
	paymentdomain.MethodPrzelewy24:   "przelewy24",
	paymentdomain.MethodSEPADebit:    "directdebit",
	paymentdomain.MethodBankTransfer: "banktransfer",
	paymentdomain.MethodBankRedirect: "",
	paymentdomain.MethodCard:         "creditcard",
	paymentdomain.MethodPayPal:       "paypal",
}

var supportedCurrencies = []string{"EUR", "GBP", "CHF", "PLN", "SEK", "DKK", "NOK", "CZK", "HUF", "USD"}

var _ paymentdomain.Gateway = (*Adapter)(nil)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	apiKey := cfg.Credential("api_key")
	webhookSecret := cfg.Credential("webhook_secret")
	if apiKey == "" || webhookSecret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if cfg.Mode == paymentdomain.ModeLive && !strings.HasPrefix(apiKey, "live_") {
		return nil, paymentdomain.ErrInvalidConfig
	}
	if cfg.Mode != paymentdomain.ModeLive && strings.HasPrefix(apiKey, "live_") {
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
			Authorize:         transport.Bearer(apiKey),
			Logger:            log,
		}),
		webhookSecret:     webhookSecret,
		webhookURL:        cfg.Credential("webhook_url"),
		descriptionPrefix: cfg.DescriptionPrefix,
		dispatcher:        cfg.Dispatcher,
		log:               log,
	}, nil
}

// Adapter talks to the Mollie Payments API v2.
type Adapter struct {
	api               *transport.Caller
	webhookSecret     string
	webhookURL        string
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

func (a *Adapter) CreatePaymentIntent(ctx context.Context, intent paymentdomain.PaymentIntent) (paymentdomain.PaymentResult, error) {
	method, ok := methods[strings.ToLower(strings.TrimSpace(intent.PaymentMethod))]
	if !ok {
		return paymentdomain.Failure("payment method "+intent.PaymentMethod+" is not supported", paymentdomain.CodeUnsupportedMethod, nil), nil
	}
	if !supportsCurrency(intent.Amount.Currency) {
		return paymentdomain.Failure("currency "+intent.Amount.Currency+" is not supported", paymentdomain.CodeUnsupportedCurrency, nil), nil
	}
	if strings.TrimSpace(intent.ReturnURL) == "" {
		return paymentdomain.Failure("a return url is required for redirect checkouts", paymentdomain.CodeInvalidRequest, nil), nil
	}

	metadata := transport.FlattenMetadata(intent.Metadata)
	metadata["donation_id"] = intent.DonationID

	body := molliePaymentRequest{
		Amount:      amountFrom(intent.Amount),
		Description: intent.Describe(a.descriptionPrefix),
		RedirectURL: intent.ReturnURL,
		CancelURL:   intent.CancelURL,
		WebhookURL:  a.webhookURL,
		Method:      method,
		Metadata:    metadata,
		CustomerID:  intent.CustomerID,
	}
	// Only card payments can be authorized and captured later.
	if method == "creditcard" && !intent.CaptureImmediately {
		body.CaptureMode = "manual"
	}
	if strings.HasPrefix(intent.PaymentMethodID, "mdt_") {
		body.MandateID = intent.PaymentMethodID
		body.SequenceType = "recurring"
	}

	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "create_payment_intent",
		Method:         http.MethodPost,
		Path:           "/v2/payments",
		JSON:           body,
		IdempotencyKey: intent.Key(paymentdomain.OpCreate),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opCreate), nil
	}

	var payment molliePayment
	if err := a.api.Decode("create_payment_intent", resp, &payment); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := paymentResult(payment, paymentdomain.CodePaymentFailed)
	return a.mapped("create_payment_intent", result, err)
}

// CapturePayment reads the payment first; a paid payment is reported from
// the read without creating another capture. A payment the payer has not
// authorized yet is not capturable and yields CAPTURE_FAILED.
func (a *Adapter) CapturePayment(ctx context.Context, intentID string) (paymentdomain.PaymentResult, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return paymentdomain.Failure("payment id is required", paymentdomain.CodeInvalidRequest, nil), nil
	}

	payment, failure, err := a.fetchPayment(ctx, "capture_payment", intentID)
	if err != nil || failure != nil {
		return deref(failure), err
	}
	switch payment.Status {
	case "authorized":
	case "open", "pending":
		out := paymentdomain.Failure("mollie payment is "+payment.Status+" and cannot be captured", paymentdomain.CodeCaptureFailed, map[string]any{
			"payment_id": payment.ID,
			"status":     payment.Status,
		})
		out.IntentID = payment.ID
		return out, nil
	default:
		result, err := paymentResult(*payment, paymentdomain.CodeCaptureFailed)
		return a.mapped("capture_payment", result, err)
	}

	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "capture_payment",
		Method:         http.MethodPost,
		Path:           "/v2/payments/" + url.PathEscape(intentID) + "/captures",
		JSON:           map[string]any{},
		IdempotencyKey: paymentdomain.DeriveKey(paymentdomain.OpCapture, intentID),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opCapture), nil
	}

	var capture mollieCapture
	if err := a.api.Decode("capture_payment", resp, &capture); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := captureResult(*payment, capture)
	return a.mapped("capture_payment", result, err)
}

func (a *Adapter) RefundPayment(ctx context.Context, req paymentdomain.RefundRequest) (paymentdomain.PaymentResult, error) {
	amount, err := req.Money()
	if err != nil || strings.TrimSpace(req.TransactionID) == "" {
		return paymentdomain.Failure("refund request is invalid", paymentdomain.CodeInvalidRequest, nil), nil
	}

	body := mollieRefundRequest{
		Amount:      amountFrom(amount),
		Description: req.Reason,
		Metadata:    transport.FlattenMetadata(req.Metadata),
	}

	resp, err := a.api.Do(ctx, transport.Request{
		Op:             "refund_payment",
		Method:         http.MethodPost,
		Path:           "/v2/payments/" + url.PathEscape(req.TransactionID) + "/refunds",
		JSON:           body,
		IdempotencyKey: req.Key(),
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if !resp.OK() {
		return failureFromResponse(resp, opRefund), nil
	}

	var refund mollieRefund
	if err := a.api.Decode("refund_payment", resp, &refund); err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	result, err := refundResult(refund)
	return a.mapped("refund_payment", result, err)
}

func (a *Adapter) GetTransaction(ctx context.Context, transactionID string) (paymentdomain.PaymentResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return paymentdomain.Failure("transaction id is required", paymentdomain.CodeInvalidRequest, nil), nil
	}
	payment, failure, err := a.fetchPayment(ctx, "get_transaction", transactionID)
	if err != nil || failure != nil {
		return deref(failure), err
	}
	result, err := paymentResult(*payment, paymentdomain.CodePaymentFailed)
	return a.mapped("get_transaction", result, err)
}

func (a *Adapter) ValidateConfiguration(ctx context.Context) bool {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:     "validate_configuration",
		Method: http.MethodGet,
		Path:   "/v2/methods",
	})
	if err != nil {
		a.log.Warn("mollie configuration check failed", zap.Error(err))
		return false
	}
	return resp.OK()
}

func (a *Adapter) fetchPayment(ctx context.Context, op string, paymentID string) (*molliePayment, *paymentdomain.PaymentResult, error) {
	resp, err := a.api.Do(ctx, transport.Request{
		Op:     op,
		Method: http.MethodGet,
		Path:   "/v2/payments/" + url.PathEscape(paymentID),
	})
	if err != nil {
		return nil, nil, err
	}
	if !resp.OK() {
		failure := failureFromResponse(resp, opRead)
		return nil, &failure, nil
	}
	var payment molliePayment
	if err := a.api.Decode(op, resp, &payment); err != nil {
		return nil, nil, err
	}
	return &payment, nil, nil
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

func amountFrom(m money.Money) mollieAmount {
	return mollieAmount{Currency: m.Currency, Value: m.Format()}
}

func (m mollieAmount) money() (money.Money, error) {
	out, err := money.Parse(m.Value, m.Currency)
	if err != nil {
		return money.Money{}, fmt.Errorf("amount %q %q: %w", m.Value, m.Currency, err)
	}
	return out, nil
}

// mapped reports a payload that decoded but could not be mapped onto the
// canonical model as an undecodable answer.
func (a *Adapter) mapped(op string, result paymentdomain.PaymentResult, err error) (paymentdomain.PaymentResult, error) {
	if err != nil {
		return paymentdomain.PaymentResult{}, a.api.Fail(op, paymentdomain.CategoryDecode, err)
	}
	return result, nil
}

// parseTime returns the first parseable timestamp, or the zero time.
func parseTime(values ...string) time.Time {
	for _, value := range values {
		if value == "" {
			continue
		}
		if parsed, err := time.Parse(time.RFC3339, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func deref(result *paymentdomain.PaymentResult) paymentdomain.PaymentResult {
	if result == nil {
		return paymentdomain.PaymentResult{}
	}
	return *result
}

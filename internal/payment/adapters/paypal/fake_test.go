package paypal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

const (
	testClientID     = "client-id"
	testClientSecret = "client-secret"
	testWebhookID    = "WH-1"
	testToken        = "A21AA-token"
	validSignature   = "valid-transmission-sig"
)

// fakePayPal keeps orders in memory and answers like the Orders v2 and
// Payments v2 APIs.
type fakePayPal struct {
	t        *testing.T
	mu       sync.Mutex
	seq      int
	orders   map[string]*order
	refunds  map[string]refund
	refunded map[string]decimal.Decimal
	tokens   int
	captures int
	verifies int
	revoked  bool
	lastBody map[string]any
	headers  http.Header
}

func newFakePayPal(t *testing.T) (*fakePayPal, *httptest.Server) {
	f := &fakePayPal{
		t:        t,
		orders:   map[string]*order{},
		refunds:  map[string]refund{},
		refunded: map[string]decimal.Decimal{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", f.token)
	mux.HandleFunc("POST /v1/notifications/verify-webhook-signature", f.authed(f.verify))
	mux.HandleFunc("GET /v1/notifications/webhooks/{id}", f.authed(f.getWebhook))
	mux.HandleFunc("POST /v2/checkout/orders", f.authed(f.createOrder))
	mux.HandleFunc("GET /v2/checkout/orders/{id}", f.authed(f.getOrder))
	mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", f.authed(f.captureOrder))
	mux.HandleFunc("POST /v2/checkout/orders/{id}/authorize", f.authed(f.authorizeOrder))
	mux.HandleFunc("POST /v2/payments/authorizations/{id}/capture", f.authed(f.captureAuthorization))
	mux.HandleFunc("GET /v2/payments/captures/{id}", f.authed(f.getCapture))
	mux.HandleFunc("POST /v2/payments/captures/{id}/refund", f.authed(f.refundCapture))
	mux.HandleFunc("GET /v2/payments/refunds/{id}", f.authed(f.getRefund))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakePayPal) token(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, secret, ok := r.BasicAuth()
	if !ok || id != testClientID || secret != testClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":             "invalid_client",
			"error_description": "Client Authentication failed",
		})
		return
	}
	f.tokens++
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": testToken,
		"token_type":   "Bearer",
		"expires_in":   32400,
	})
}

func (f *fakePayPal) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.revoked || r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"name": "AUTHENTICATION_FAILURE"})
			return
		}
		next(w, r)
	}
}

func (f *fakePayPal) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%04d", prefix, f.seq)
}

func (f *fakePayPal) createOrder(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("decode body: %v", err)
	}
	f.lastBody = body
	f.headers = r.Header.Clone()

	raw, _ := json.Marshal(body["purchase_units"])
	var units []purchaseUnit
	_ = json.Unmarshal(raw, &units)

	id := f.nextID("ORDER")
	f.orders[id] = &order{
		ID:            id,
		Status:        "PAYER_ACTION_REQUIRED",
		Intent:        body["intent"].(string),
		PurchaseUnits: units,
		Links: []link{
			{Href: "https://api-m.sandbox.paypal.com/v2/checkout/orders/" + id, Rel: "self", Method: "GET"},
			{Href: "https://www.sandbox.paypal.com/checkoutnow?token=" + id, Rel: "payer-action", Method: "GET"},
		},
		CreateTime: "2026-10-15T10:00:00Z",
	}
	writeJSON(w, http.StatusCreated, f.orders[id])
}

// approve simulates the donor approving the order on PayPal.
func (f *fakePayPal) approve(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[id].Status = "APPROVED"
}

func (f *fakePayPal) setStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[id].Status = status
}

func (f *fakePayPal) getOrder(w http.ResponseWriter, r *http.Request) {
	current, ok := f.orders[r.PathValue("id")]
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (f *fakePayPal) captureOrder(w http.ResponseWriter, r *http.Request) {
	f.captures++
	current, ok := f.orders[r.PathValue("id")]
	if !ok {
		writeNotFound(w)
		return
	}
	switch current.Status {
	case "COMPLETED":
		writeIssue(w, http.StatusUnprocessableEntity, "ORDER_ALREADY_CAPTURED")
		return
	case "APPROVED":
	default:
		writeIssue(w, http.StatusUnprocessableEntity, "ORDER_NOT_APPROVED")
		return
	}
	unit := &current.PurchaseUnits[0]
	unit.Payments = &payments{Captures: []capture{f.newCapture(current.ID, unit)}}
	current.Status = "COMPLETED"
	writeJSON(w, http.StatusCreated, current)
}

func (f *fakePayPal) authorizeOrder(w http.ResponseWriter, r *http.Request) {
	current, ok := f.orders[r.PathValue("id")]
	if !ok {
		writeNotFound(w)
		return
	}
	if current.Status != "APPROVED" || current.Intent != "AUTHORIZE" {
		writeIssue(w, http.StatusUnprocessableEntity, "ORDER_NOT_APPROVED")
		return
	}
	unit := &current.PurchaseUnits[0]
	unit.Payments = &payments{Authorizations: []authorization{{
		ID:     f.nextID("AUTH"),
		Status: "CREATED",
		Amount: unit.Amount,
	}}}
	current.Status = "COMPLETED"
	writeJSON(w, http.StatusCreated, current)
}

func (f *fakePayPal) captureAuthorization(w http.ResponseWriter, r *http.Request) {
	f.captures++
	authID := r.PathValue("id")
	for _, current := range f.orders {
		unit := &current.PurchaseUnits[0]
		if unit.Payments == nil {
			continue
		}
		for i := range unit.Payments.Authorizations {
			auth := &unit.Payments.Authorizations[i]
			if auth.ID != authID {
				continue
			}
			if auth.Status != "CREATED" {
				writeIssue(w, http.StatusUnprocessableEntity, "AUTHORIZATION_ALREADY_CAPTURED")
				return
			}
			auth.Status = "CAPTURED"
			c := f.newCapture(current.ID, unit)
			unit.Payments.Captures = append(unit.Payments.Captures, c)
			writeJSON(w, http.StatusCreated, c)
			return
		}
	}
	writeNotFound(w)
}

func (f *fakePayPal) newCapture(orderID string, unit *purchaseUnit) capture {
	c := capture{
		ID:           f.nextID("CAP"),
		Status:       "COMPLETED",
		Amount:       unit.Amount,
		CustomID:     unit.CustomID,
		FinalCapture: true,
		CreateTime:   "2026-10-15T10:05:00Z",
	}
	c.SupplementaryData = &supplementaryData{}
	c.SupplementaryData.RelatedIDs.OrderID = orderID
	return c
}

func (f *fakePayPal) findCapture(id string) *capture {
	for _, current := range f.orders {
		unit := &current.PurchaseUnits[0]
		if unit.Payments == nil {
			continue
		}
		for i := range unit.Payments.Captures {
			if unit.Payments.Captures[i].ID == id {
				return &unit.Payments.Captures[i]
			}
		}
	}
	return nil
}

func (f *fakePayPal) getCapture(w http.ResponseWriter, r *http.Request) {
	c := f.findCapture(r.PathValue("id"))
	if c == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (f *fakePayPal) refundCapture(w http.ResponseWriter, r *http.Request) {
	c := f.findCapture(r.PathValue("id"))
	if c == nil {
		writeNotFound(w)
		return
	}
	var body refundRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("decode refund: %v", err)
	}
	f.headers = r.Header.Clone()

	total := decimal.RequireFromString(c.Amount.Value)
	requested := decimal.RequireFromString(body.Amount.Value)
	already := f.refunded[c.ID]
	if already.Equal(total) {
		writeIssue(w, http.StatusUnprocessableEntity, "CAPTURE_FULLY_REFUNDED")
		return
	}
	if already.Add(requested).GreaterThan(total) {
		writeIssue(w, http.StatusUnprocessableEntity, "REFUND_AMOUNT_EXCEEDED")
		return
	}
	f.refunded[c.ID] = already.Add(requested)
	if f.refunded[c.ID].Equal(total) {
		c.Status = "REFUNDED"
	} else {
		c.Status = "PARTIALLY_REFUNDED"
	}

	out := refund{
		ID:          f.nextID("REF"),
		Status:      "COMPLETED",
		Amount:      body.Amount,
		NoteToPayer: body.NoteToPayer,
		Links: []link{
			{Href: "https://api-m.sandbox.paypal.com/v2/payments/captures/" + c.ID, Rel: "up", Method: "GET"},
		},
	}
	f.refunds[out.ID] = out
	writeJSON(w, http.StatusCreated, out)
}

func (f *fakePayPal) getRefund(w http.ResponseWriter, r *http.Request) {
	out, ok := f.refunds[r.PathValue("id")]
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakePayPal) verify(w http.ResponseWriter, r *http.Request) {
	f.verifies++
	var body verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"name": "VALIDATION_ERROR"})
		return
	}
	status := "FAILURE"
	if body.TransmissionSig == validSignature && body.WebhookID == testWebhookID && json.Valid(body.WebhookEvent) {
		status = "SUCCESS"
	}
	writeJSON(w, http.StatusOK, map[string]any{"verification_status": status})
}

// revoke invalidates issued tokens, as rotating the client secret does.
func (f *fakePayPal) revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = true
}

func (f *fakePayPal) getWebhook(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != testWebhookID {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":  testWebhookID,
		"url": "https://give.example/webhooks/paypal",
	})
}

func (f *fakePayPal) counts() (tokens, captures, verifies int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens, f.captures, f.verifies
}

func (f *fakePayPal) firstCaptureID(orderID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[orderID].PurchaseUnits[0].Payments.Captures[0].ID
}

func writeIssue(w http.ResponseWriter, status int, issue string) {
	writeJSON(w, status, map[string]any{
		"name":     "UNPROCESSABLE_ENTITY",
		"message":  "The requested action could not be performed, semantically incorrect, or failed business validation.",
		"debug_id": "f00d",
		"details":  []map[string]any{{"issue": issue, "description": strings.ToLower(strings.ReplaceAll(issue, "_", " "))}},
	})
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"name":     "RESOURCE_NOT_FOUND",
		"message":  "The specified resource does not exist.",
		"debug_id": "f00d",
		"details":  []map[string]any{{"issue": "INVALID_RESOURCE_ID", "description": "Specified resource ID does not exist."}},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package mollie

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// fakeMollie keeps payments in memory and answers like the Payments API v2.
type fakeMollie struct {
	t        *testing.T
	mu       sync.Mutex
	seq      int
	payments map[string]map[string]any
	captures int
	lastBody map[string]any
	headers  http.Header
}

func newFakeMollie(t *testing.T) (*fakeMollie, *httptest.Server) {
	f := &fakeMollie{t: t, payments: map[string]map[string]any{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/payments", f.createPayment)
	mux.HandleFunc("GET /v2/payments/{id}", f.getPayment)
	mux.HandleFunc("POST /v2/payments/{id}/captures", f.capturePayment)
	mux.HandleFunc("POST /v2/payments/{id}/refunds", f.refundPayment)
	mux.HandleFunc("GET /v2/methods", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test_key" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"status": 401, "title": "Unauthorized Request"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": 3})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeMollie) createPayment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("decode body: %v", err)
	}
	f.lastBody = body
	f.headers = r.Header.Clone()

	if body["method"] == "klarna" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status": 422, "title": "Unprocessable Entity", "detail": "The payment method is invalid", "field": "method",
		})
		return
	}

	f.seq++
	id := fmt.Sprintf("tr_%04d", f.seq)
	payment := map[string]any{
		"id":           id,
		"status":       "open",
		"amount":       body["amount"],
		"method":       body["method"],
		"metadata":     body["metadata"],
		"sequenceType": "oneoff",
		"captureMode":  body["captureMode"],
		"createdAt":    "2026-10-15T10:00:00+00:00",
		"_links": map[string]any{
			"checkout": map[string]any{"href": "https://www.mollie.com/checkout/" + id},
		},
	}
	f.payments[id] = payment
	writeJSON(w, http.StatusCreated, payment)
}

// setStatus simulates the donor finishing the hosted checkout.
func (f *fakeMollie) setStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[id]["status"] = status
	if status == "paid" {
		f.payments[id]["paidAt"] = "2026-10-15T10:05:00+00:00"
	}
}

func (f *fakeMollie) set(id, key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[id][key] = value
}

func (f *fakeMollie) getPayment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	payment, ok := f.payments[r.PathValue("id")]
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (f *fakeMollie) capturePayment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.captures++
	payment, ok := f.payments[r.PathValue("id")]
	if !ok {
		writeNotFound(w)
		return
	}
	if payment["status"] != "authorized" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status": 422, "title": "Unprocessable Entity", "detail": "Payment cannot be captured",
		})
		return
	}
	payment["status"] = "paid"
	payment["amountCaptured"] = payment["amount"]
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        "cpt_1",
		"status":    "succeeded",
		"amount":    payment["amount"],
		"paymentId": payment["id"],
	})
}

func (f *fakeMollie) refundPayment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	payment, ok := f.payments[r.PathValue("id")]
	if !ok {
		writeNotFound(w)
		return
	}
	var body struct {
		Amount struct {
			Currency string `json:"currency"`
			Value    string `json:"value"`
		} `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("decode refund: %v", err)
	}

	total := decimal.RequireFromString(payment["amount"].(map[string]any)["value"].(string))
	refunded := decimal.Zero
	if existing, ok := payment["amountRefunded"].(map[string]any); ok {
		refunded = decimal.RequireFromString(existing["value"].(string))
	}
	requested := decimal.RequireFromString(body.Amount.Value)
	if refunded.Add(requested).GreaterThan(total) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status": 422,
			"title":  "Unprocessable Entity",
			"detail": "The amount is higher than the amount that is refundable for this payment",
			"field":  "amount",
		})
		return
	}
	payment["amountRefunded"] = map[string]any{"currency": body.Amount.Currency, "value": refunded.Add(requested).StringFixed(2)}

	f.seq++
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        fmt.Sprintf("re_%04d", f.seq),
		"status":    "pending",
		"amount":    map[string]any{"currency": body.Amount.Currency, "value": body.Amount.Value},
		"paymentId": payment["id"],
	})
}

func (f *fakeMollie) captureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"status": 404, "title": "Not Found", "detail": "No payment exists with token tr_unknown.",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/hal+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

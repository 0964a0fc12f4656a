package stripe

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// fakeStripe is an in-memory stand-in for the PaymentIntents API.
type fakeStripe struct {
	t        *testing.T
	mu       sync.Mutex
	seq      int
	intents  map[string]map[string]any
	charges  map[string]map[string]any
	refunds  map[string]map[string]any
	captures int
	lastForm map[string]string
	headers  http.Header
}

func newFakeStripe(t *testing.T) (*fakeStripe, *httptest.Server) {
	f := &fakeStripe{
		t:       t,
		intents: map[string]map[string]any{},
		charges: map[string]map[string]any{},
		refunds: map[string]map[string]any{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/payment_intents", f.createIntent)
	mux.HandleFunc("GET /v1/payment_intents/{id}", f.getIntent)
	mux.HandleFunc("POST /v1/payment_intents/{id}/capture", f.captureIntent)
	mux.HandleFunc("GET /v1/charges/{id}", f.getObject(f.charges))
	mux.HandleFunc("POST /v1/refunds", f.createRefund)
	mux.HandleFunc("GET /v1/refunds/{id}", f.getObject(f.refunds))
	mux.HandleFunc("GET /v1/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_test_123" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"type": "invalid_request_error"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": "balance"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeStripe) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%04d", prefix, f.seq)
}

func (f *fakeStripe) createIntent(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		f.t.Errorf("parse form: %v", err)
	}
	f.headers = r.Header.Clone()
	f.lastForm = map[string]string{}
	for key := range r.PostForm {
		f.lastForm[key] = r.PostForm.Get(key)
	}

	paymentMethod := r.PostForm.Get("payment_method")
	if paymentMethod == "pm_card_chargeDeclined" {
		writeJSON(w, http.StatusPaymentRequired, map[string]any{"error": map[string]any{
			"type":         "card_error",
			"code":         "card_declined",
			"decline_code": "generic_decline",
			"message":      "Your card was declined.",
		}})
		return
	}

	amount, _ := strconv.ParseInt(r.PostForm.Get("amount"), 10, 64)
	intent := map[string]any{
		"id":             f.nextID("pi"),
		"amount":         amount,
		"currency":       r.PostForm.Get("currency"),
		"capture_method": r.PostForm.Get("capture_method"),
		"client_secret":  "secret",
		"metadata":       map[string]any{"donation_id": r.PostForm.Get("metadata[donation_id]")},
		"status":         "requires_payment_method",
	}
	if r.PostForm.Get("confirm") == "true" {
		switch {
		case paymentMethod == "pm_card_threeDSecureRequired":
			intent["status"] = "requires_action"
			intent["next_action"] = map[string]any{
				"type":            "redirect_to_url",
				"redirect_to_url": map[string]any{"url": "https://hooks.stripe.test/3ds"},
			}
		case r.PostForm.Get("capture_method") == "automatic":
			f.succeed(intent)
		default:
			intent["status"] = "requires_capture"
		}
	}
	f.intents[intent["id"].(string)] = intent
	writeJSON(w, http.StatusOK, intent)
}

// succeed marks an intent captured and books its charge.
func (f *fakeStripe) succeed(intent map[string]any) {
	chargeID := f.nextID("ch")
	intent["status"] = "succeeded"
	intent["amount_received"] = intent["amount"]
	intent["latest_charge"] = chargeID
	f.charges[chargeID] = map[string]any{
		"id":              chargeID,
		"amount":          intent["amount"],
		"amount_refunded": int64(0),
		"currency":        intent["currency"],
		"status":          "succeeded",
		"payment_intent":  intent["id"],
	}
}

func (f *fakeStripe) getIntent(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	intent, ok := f.intents[r.PathValue("id")]
	if !ok {
		writeMissing(w)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (f *fakeStripe) captureIntent(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.captures++
	intent, ok := f.intents[r.PathValue("id")]
	if !ok {
		writeMissing(w)
		return
	}
	if intent["status"] != "requires_capture" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"type": "invalid_request_error",
			"code": "payment_intent_unexpected_state",
		}})
		return
	}
	f.succeed(intent)
	writeJSON(w, http.StatusOK, intent)
}

func (f *fakeStripe) createRefund(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		f.t.Errorf("parse form: %v", err)
	}
	charge, ok := f.charges[r.PostForm.Get("charge")]
	if !ok {
		writeMissing(w)
		return
	}
	amount, _ := strconv.ParseInt(r.PostForm.Get("amount"), 10, 64)
	refunded := charge["amount_refunded"].(int64)
	if refunded+amount > charge["amount"].(int64) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"type":    "invalid_request_error",
			"code":    "amount_too_large",
			"param":   "amount",
			"message": "Refund amount is greater than unrefunded amount on charge",
		}})
		return
	}
	charge["amount_refunded"] = refunded + amount
	if refunded+amount == charge["amount"].(int64) {
		charge["refunded"] = true
	}
	refund := map[string]any{
		"id":             f.nextID("re"),
		"amount":         amount,
		"currency":       charge["currency"],
		"status":         "succeeded",
		"charge":         charge["id"],
		"payment_intent": charge["payment_intent"],
		"reason":         r.PostForm.Get("reason"),
	}
	f.refunds[refund["id"].(string)] = refund
	writeJSON(w, http.StatusOK, refund)
}

func (f *fakeStripe) getObject(store map[string]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		object, ok := store[r.PathValue("id")]
		if !ok {
			writeMissing(w)
			return
		}
		writeJSON(w, http.StatusOK, object)
	}
}

func (f *fakeStripe) captureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

func writeMissing(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{
		"type":    "invalid_request_error",
		"code":    "resource_missing",
		"message": "No such object",
	}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package stripe

import (
	"bytes"
	"encoding/json"
)

type stripePaymentIntent struct {
	ID                 string            `json:"id"`
	Amount             int64             `json:"amount"`
	AmountReceived     int64             `json:"amount_received"`
	Currency           string            `json:"currency"`
	Status             string            `json:"status"`
	CaptureMethod      string            `json:"capture_method"`
	ClientSecret       string            `json:"client_secret"`
	CancellationReason string            `json:"cancellation_reason"`
	LatestCharge       expandable        `json:"latest_charge"`
	NextAction         *stripeNextAction `json:"next_action"`
	LastPaymentError   *stripeError      `json:"last_payment_error"`
	Created            int64             `json:"created"`
	Metadata           map[string]any    `json:"metadata"`
}

type stripeNextAction struct {
	Type          string `json:"type"`
	RedirectToURL *struct {
		URL string `json:"url"`
	} `json:"redirect_to_url"`
}

type stripeCharge struct {
	ID             string         `json:"id"`
	Amount         int64          `json:"amount"`
	AmountRefunded int64          `json:"amount_refunded"`
	Currency       string         `json:"currency"`
	Status         string         `json:"status"`
	Refunded       bool           `json:"refunded"`
	Disputed       bool           `json:"disputed"`
	PaymentIntent  string         `json:"payment_intent"`
	FailureCode    string         `json:"failure_code"`
	FailureMessage string         `json:"failure_message"`
	Created        int64          `json:"created"`
	Metadata       map[string]any `json:"metadata"`
}

type stripeRefund struct {
	ID            string         `json:"id"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	Reason        string         `json:"reason"`
	Charge        string         `json:"charge"`
	PaymentIntent string         `json:"payment_intent"`
	FailureReason string         `json:"failure_reason"`
	Metadata      map[string]any `json:"metadata"`
}

type stripeDispute struct {
	ID       string `json:"id"`
	Charge   string `json:"charge"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason"`
	Status   string `json:"status"`
	Created  int64  `json:"created"`
}

type stripeInvoice struct {
	ID            string         `json:"id"`
	Charge        string         `json:"charge"`
	PaymentIntent string         `json:"payment_intent"`
	Subscription  string         `json:"subscription"`
	AmountPaid    int64          `json:"amount_paid"`
	Currency      string         `json:"currency"`
	Created       int64          `json:"created"`
	Metadata      map[string]any `json:"metadata"`
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

// expandable is an id field Stripe returns either as a string or, when
// expanded, as an object.
type expandable struct {
	ID string
}

func (e *expandable) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &e.ID)
	}
	var object struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}
	e.ID = object.ID
	return nil
}

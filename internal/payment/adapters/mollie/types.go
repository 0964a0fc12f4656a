package mollie

type mollieAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type molliePaymentRequest struct {
	Amount       mollieAmount      `json:"amount"`
	Description  string            `json:"description"`
	RedirectURL  string            `json:"redirectUrl,omitempty"`
	CancelURL    string            `json:"cancelUrl,omitempty"`
	WebhookURL   string            `json:"webhookUrl,omitempty"`
	Method       string            `json:"method,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CaptureMode  string            `json:"captureMode,omitempty"`
	CustomerID   string            `json:"customerId,omitempty"`
	MandateID    string            `json:"mandateId,omitempty"`
	SequenceType string            `json:"sequenceType,omitempty"`
}

type molliePayment struct {
	ID                string         `json:"id"`
	Status            string         `json:"status"`
	Amount            mollieAmount   `json:"amount"`
	AmountRefunded    *mollieAmount  `json:"amountRefunded"`
	AmountCaptured    *mollieAmount  `json:"amountCaptured"`
	AmountChargedBack *mollieAmount  `json:"amountChargedBack"`
	Method            string         `json:"method"`
	SequenceType      string         `json:"sequenceType"`
	CaptureMode       string         `json:"captureMode"`
	Metadata          map[string]any `json:"metadata"`
	CreatedAt         string         `json:"createdAt"`
	PaidAt            string         `json:"paidAt"`
	FailedAt          string         `json:"failedAt"`
	Links             mollieLinks    `json:"_links"`
	Details           map[string]any `json:"details"`
}

type mollieLinks struct {
	Checkout *mollieLink `json:"checkout"`
}

type mollieLink struct {
	Href string `json:"href"`
}

type mollieCapture struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	Amount    mollieAmount `json:"amount"`
	PaymentID string       `json:"paymentId"`
}

type mollieRefundRequest struct {
	Amount      mollieAmount      `json:"amount"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type mollieRefund struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Amount      mollieAmount   `json:"amount"`
	PaymentID   string         `json:"paymentId"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

type mollieError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Field  string `json:"field"`
}

package paypal

import (
	"encoding/json"
	"strings"
)

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type orderRequest struct {
	Intent        string                `json:"intent"`
	PurchaseUnits []purchaseUnitRequest `json:"purchase_units"`
	PaymentSource *paymentSource        `json:"payment_source,omitempty"`
}

type purchaseUnitRequest struct {
	ReferenceID string `json:"reference_id"`
	CustomID    string `json:"custom_id"`
	Description string `json:"description,omitempty"`
	Amount      amount `json:"amount"`
}

type paymentSource struct {
	PayPal *paypalSource `json:"paypal,omitempty"`
}

type paypalSource struct {
	ExperienceContext experienceContext `json:"experience_context"`
}

type experienceContext struct {
	ReturnURL          string `json:"return_url,omitempty"`
	CancelURL          string `json:"cancel_url,omitempty"`
	UserAction         string `json:"user_action,omitempty"`
	ShippingPreference string `json:"shipping_preference,omitempty"`
}

type refundRequest struct {
	Amount      amount `json:"amount"`
	NoteToPayer string `json:"note_to_payer,omitempty"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	Links         []link         `json:"links"`
	CreateTime    string         `json:"create_time"`
}

type purchaseUnit struct {
	ReferenceID string    `json:"reference_id"`
	CustomID    string    `json:"custom_id"`
	Amount      amount    `json:"amount"`
	Payments    *payments `json:"payments"`
}

type payments struct {
	Captures       []capture       `json:"captures"`
	Authorizations []authorization `json:"authorizations"`
}

type statusDetails struct {
	Reason string `json:"reason"`
}

type capture struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	Amount            amount             `json:"amount"`
	CustomID          string             `json:"custom_id"`
	FinalCapture      bool               `json:"final_capture"`
	StatusDetails     *statusDetails     `json:"status_details"`
	SupplementaryData *supplementaryData `json:"supplementary_data"`
	CreateTime        string             `json:"create_time"`
}

type supplementaryData struct {
	RelatedIDs struct {
		OrderID         string `json:"order_id"`
		AuthorizationID string `json:"authorization_id"`
	} `json:"related_ids"`
}

type authorization struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount amount `json:"amount"`
}

type refund struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Amount        amount         `json:"amount"`
	NoteToPayer   string         `json:"note_to_payer"`
	StatusDetails *statusDetails `json:"status_details"`
	Links         []link         `json:"links"`
	CreateTime    string         `json:"create_time"`
}

type sale struct {
	ID                 string `json:"id"`
	State              string `json:"state"`
	BillingAgreementID string `json:"billing_agreement_id"`
	Amount             struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
	CreateTime string `json:"create_time"`
}

type dispute struct {
	DisputeID            string `json:"dispute_id"`
	Reason               string `json:"reason"`
	Status               string `json:"status"`
	DisputeAmount        amount `json:"dispute_amount"`
	DisputedTransactions []struct {
		SellerTransactionID string `json:"seller_transaction_id"`
	} `json:"disputed_transactions"`
	CreateTime string `json:"create_time"`
}

type webhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	CreateTime   string          `json:"create_time"`
	Resource     json.RawMessage `json:"resource"`
}

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

type paypalError struct {
	Name    string        `json:"name"`
	Message string        `json:"message"`
	DebugID string        `json:"debug_id"`
	Details []errorDetail `json:"details"`
}

type errorDetail struct {
	Issue       string `json:"issue"`
	Description string `json:"description"`
	Field       string `json:"field"`
}

func (o order) unit() *purchaseUnit {
	if len(o.PurchaseUnits) == 0 {
		return nil
	}
	return &o.PurchaseUnits[0]
}

func (o order) lastCapture() *capture {
	unit := o.unit()
	if unit == nil || unit.Payments == nil || len(unit.Payments.Captures) == 0 {
		return nil
	}
	return &unit.Payments.Captures[len(unit.Payments.Captures)-1]
}

// pendingAuthorization returns an authorization that can still be captured.
func (o order) pendingAuthorization() *authorization {
	unit := o.unit()
	if unit == nil || unit.Payments == nil || len(unit.Payments.Captures) > 0 {
		return nil
	}
	for i := range unit.Payments.Authorizations {
		if strings.EqualFold(unit.Payments.Authorizations[i].Status, "CREATED") {
			return &unit.Payments.Authorizations[i]
		}
	}
	return nil
}

func (o order) approveLink() string {
	for _, rel := range []string{"payer-action", "approve"} {
		for _, l := range o.Links {
			if l.Rel == rel {
				return l.Href
			}
		}
	}
	return ""
}

func (o order) metadata() map[string]any {
	unit := o.unit()
	if unit == nil || unit.CustomID == "" {
		return nil
	}
	return map[string]any{"donation_id": unit.CustomID}
}

// captureID reads the capture a refund belongs to from its "up" link.
func (r refund) captureID() string {
	for _, l := range r.Links {
		if l.Rel != "up" {
			continue
		}
		href := strings.TrimRight(l.Href, "/")
		if idx := strings.LastIndex(href, "/"); idx >= 0 {
			return href[idx+1:]
		}
	}
	return ""
}

package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEventType is the canonical kind of a reconciled provider event.
type WebhookEventType string

const (
	EventPaymentSucceeded WebhookEventType = "payment.succeeded"
	EventPaymentFailed    WebhookEventType = "payment.failed"
	EventPaymentRefunded  WebhookEventType = "payment.refunded"
	EventDisputeCreated   WebhookEventType = "dispute.created"
	EventRecurringPaid    WebhookEventType = "recurring.paid"
	EventCheckoutApproved WebhookEventType = "checkout.approved"
)

// WebhookState is the lifecycle of one webhook delivery.
type WebhookState string

const (
	WebhookReceived     WebhookState = "RECEIVED"
	WebhookVerified     WebhookState = "VERIFIED"
	WebhookResolved     WebhookState = "RESOLVED"
	WebhookAcknowledged WebhookState = "ACKNOWLEDGED"
	WebhookRejected     WebhookState = "REJECTED"
)

// WebhookEvent is what an adapter hands downstream after verifying and
// resolving a delivery. Result carries the canonical status and amount.
type WebhookEvent struct {
	Provider          string
	EventID           string
	Type              WebhookEventType
	ProviderEventType string
	Result            PaymentResult
	// OccurredAt is the provider's timestamp; zero when none was sent.
	OccurredAt        time.Time
	RawPayload        []byte
}

// EventDispatcher receives reconciled events from adapters.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event WebhookEvent) error
}

// StatusSink is the donation-side collaborator that applies status changes.
// Implementations must be idempotent per TransactionID.
type StatusSink interface {
	Apply(ctx context.Context, event WebhookEvent) error
}

type DispatcherFunc func(ctx context.Context, event WebhookEvent) error

func (f DispatcherFunc) Dispatch(ctx context.Context, event WebhookEvent) error {
	return f(ctx, event)
}

// EventRecord is one row of the webhook event ledger. (provider,
// provider_event_id) is unique so a redelivered event is recorded once.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	TransactionID   string         `json:"transaction_id" gorm:"type:text;index"`
	Status          string         `json:"status" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

type Repository interface {
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*EventRecord, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}

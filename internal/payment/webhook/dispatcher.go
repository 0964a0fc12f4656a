package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/smallbiznis/givebridge/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DispatcherParams struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	Sink       paymentdomain.StatusSink `optional:"true"`
	ObsMetrics *obsmetrics.Metrics      `optional:"true"`
}

// Dispatcher records every reconciled event in the payment_events ledger
// before handing it to the status sink. A redelivered event that was already
// processed is not forwarded again.
type Dispatcher struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	sink       paymentdomain.StatusSink
	obsMetrics *obsmetrics.Metrics
	now        func() time.Time
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	log := p.Log.Named("payment.dispatcher")
	sink := p.Sink
	if sink == nil {
		sink = NewLogSink(log)
	}
	return &Dispatcher{
		db:         p.DB,
		log:        log,
		genID:      p.GenID,
		repo:       p.Repo,
		sink:       sink,
		obsMetrics: p.ObsMetrics,
		now:        time.Now,
	}
}

// ledgerPayload is the JSON stored with each record. Raw bodies are not
// always JSON (Mollie posts a form), so they are kept as a string.
type ledgerPayload struct {
	Type              string         `json:"type"`
	ProviderEventType string         `json:"provider_event_type"`
	TransactionID     string         `json:"transaction_id,omitempty"`
	IntentID          string         `json:"intent_id,omitempty"`
	Status            string         `json:"status"`
	Amount            string         `json:"amount,omitempty"`
	Currency          string         `json:"currency,omitempty"`
	ErrorCode         string         `json:"error_code,omitempty"`
	OccurredAt        *time.Time     `json:"occurred_at,omitempty"`
	GatewayData       map[string]any `json:"gateway_data,omitempty"`
	Raw               string         `json:"raw,omitempty"`
}

func (d *Dispatcher) Dispatch(ctx context.Context, event paymentdomain.WebhookEvent) error {
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	event.EventID = strings.TrimSpace(event.EventID)
	if event.Provider == "" || event.EventID == "" || event.Type == "" {
		return paymentdomain.ErrInvalidEvent
	}

	log := d.log.With(
		zap.String("provider", event.Provider),
		zap.String("event_id", event.EventID),
		zap.String("event_type", string(event.Type)),
		zap.String("transaction_id", event.Result.TransactionID),
	)
	d.transition(ctx, log, event.Provider, paymentdomain.WebhookVerified)
	d.transition(ctx, log, event.Provider, paymentdomain.WebhookResolved)

	payload, err := d.payload(event)
	if err != nil {
		return paymentdomain.ErrInvalidPayload
	}

	now := d.now().UTC()
	received := paymentdomain.EventRecord{
		ID:              d.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.EventID,
		EventType:       string(event.Type),
		TransactionID:   event.Result.TransactionID,
		Status:          event.Result.Status.String(),
		Payload:         payload,
		ReceivedAt:      now,
	}

	inserted, err := d.repo.InsertEvent(ctx, d.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = d.repo.FindEvent(ctx, d.db, event.Provider, event.EventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			log.Info("payment event already processed")
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := d.sink.Apply(ctx, event); err != nil {
		log.Warn("status sink rejected payment event", zap.Error(err))
		return err
	}

	if err := d.repo.MarkProcessed(ctx, d.db, stored.ID, now); err != nil {
		return err
	}

	if inserted && d.obsMetrics != nil {
		d.obsMetrics.RecordPaymentEvent(ctx, event.Provider, string(event.Type))
	}
	return nil
}

func (d *Dispatcher) payload(event paymentdomain.WebhookEvent) (datatypes.JSON, error) {
	result := event.Result
	body := ledgerPayload{
		Type:              string(event.Type),
		ProviderEventType: event.ProviderEventType,
		TransactionID:     result.TransactionID,
		IntentID:          result.IntentID,
		Status:            result.Status.String(),
		ErrorCode:         result.ErrorCode,
		GatewayData:       result.GatewayData,
		Raw:               string(event.RawPayload),
	}
	if !event.OccurredAt.IsZero() {
		occurred := event.OccurredAt.UTC()
		body.OccurredAt = &occurred
	}
	if result.Amount.Currency != "" {
		body.Amount = result.Amount.Format()
		body.Currency = result.Amount.Currency
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func (d *Dispatcher) transition(ctx context.Context, log *zap.Logger, provider string, state paymentdomain.WebhookState) {
	log.Debug("webhook state", zap.String("state", string(state)))
	if d.obsMetrics != nil {
		d.obsMetrics.RecordWebhook(ctx, provider, string(state))
	}
}

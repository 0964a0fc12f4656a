package webhook

import (
	"context"

	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"go.uber.org/zap"
)

// LogSink is the status sink used when no donation-side collaborator is
// wired. It only logs the canonical outcome.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Apply(_ context.Context, event paymentdomain.WebhookEvent) error {
	result := event.Result
	s.log.Info("payment status observed",
		zap.String("provider", event.Provider),
		zap.String("event_id", event.EventID),
		zap.String("event_type", string(event.Type)),
		zap.String("transaction_id", result.TransactionID),
		zap.String("intent_id", result.IntentID),
		zap.String("status", result.Status.String()),
		zap.String("amount", result.Amount.String()),
		zap.Bool("success", result.Success),
		zap.String("error_code", result.ErrorCode),
	)
	return nil
}

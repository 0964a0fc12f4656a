package domain

import "strings"

// PaymentStatus is the canonical, provider-agnostic lifecycle stage of a
// donation payment. Every adapter maps its native vocabulary into it.
type PaymentStatus string

const (
	StatusPending        PaymentStatus = "PENDING"
	StatusProcessing     PaymentStatus = "PROCESSING"
	StatusRequiresAction PaymentStatus = "REQUIRES_ACTION"
	StatusCompleted      PaymentStatus = "COMPLETED"
	StatusFailed         PaymentStatus = "FAILED"
	StatusCancelled      PaymentStatus = "CANCELLED"
	StatusRefunded       PaymentStatus = "REFUNDED"
)

func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		StatusPending,
		StatusProcessing,
		StatusRequiresAction,
		StatusCompleted,
		StatusFailed,
		StatusCancelled,
		StatusRefunded,
	}
}

func (s PaymentStatus) Valid() bool {
	for _, status := range PaymentStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsFailure reports whether money collection ended without success.
func (s PaymentStatus) IsFailure() bool {
	return s == StatusFailed || s == StatusCancelled
}

func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

// StatusTable is a provider status vocabulary. Lookup is case-insensitive and
// falls back to StatusPending so an unknown provider value never lands in a
// terminal state.
type StatusTable map[string]PaymentStatus

func (t StatusTable) Map(providerStatus string) PaymentStatus {
	key := strings.ToLower(strings.TrimSpace(providerStatus))
	if status, ok := t[key]; ok {
		return status
	}
	return StatusPending
}

// Known returns the provider statuses the table documents.
func (t StatusTable) Known() []string {
	out := make([]string, 0, len(t))
	for key := range t {
		out = append(out, key)
	}
	return out
}

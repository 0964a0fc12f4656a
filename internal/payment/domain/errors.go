package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrProviderNotFound      = errors.New("payment_provider_not_found")
	ErrInvalidProvider       = errors.New("invalid_payment_provider")
	ErrInvalidConfig         = errors.New("invalid_payment_config")
	ErrInvalidSignature      = errors.New("invalid_webhook_signature")
	ErrInvalidPayload        = errors.New("invalid_webhook_payload")
	ErrInvalidEvent          = errors.New("invalid_payment_event")
	ErrEventIgnored          = errors.New("payment_event_ignored")
	ErrEventAlreadyProcessed = errors.New("payment_event_already_processed")
	ErrWebhookInFlight       = errors.New("payment_webhook_in_flight")

	ErrTransport           = errors.New("payment_transport_failure")
	ErrTimeout             = errors.New("payment_provider_timeout")
	ErrDecode              = errors.New("payment_response_undecodable")
	ErrProviderUnavailable = errors.New("payment_provider_unavailable")
)

// Category is the stable classification of an integration failure.
type Category string

const (
	CategoryTransport   Category = "transport"
	CategoryTimeout     Category = "timeout"
	CategoryDecode      Category = "decode"
	CategoryConfig      Category = "config"
	CategorySignature   Category = "signature"
	CategoryPayload     Category = "payload"
	CategoryUnavailable Category = "provider_unavailable"
)

var categorySentinels = map[Category]error{
	CategoryTransport:   ErrTransport,
	CategoryTimeout:     ErrTimeout,
	CategoryDecode:      ErrDecode,
	CategoryConfig:      ErrInvalidConfig,
	CategorySignature:   ErrInvalidSignature,
	CategoryPayload:     ErrInvalidPayload,
	CategoryUnavailable: ErrProviderUnavailable,
}

// IntegrationError is returned when a gateway could not talk to its provider
// at all, as opposed to the provider declining a payment. It matches the
// category sentinel and the underlying cause with errors.Is.
type IntegrationError struct {
	Provider string
	Op       string
	Category Category
	Err      error
}

func NewIntegrationError(provider, op string, category Category, err error) *IntegrationError {
	return &IntegrationError{Provider: provider, Op: op, Category: category, Err: err}
}

func (e *IntegrationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Category)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Category, e.Err)
}

func (e *IntegrationError) Unwrap() []error {
	out := make([]error, 0, 2)
	if sentinel, ok := categorySentinels[e.Category]; ok {
		out = append(out, sentinel)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// CategoryOf returns the category of err, or empty when err is not an
// integration error.
func CategoryOf(err error) Category {
	var ierr *IntegrationError
	if errors.As(err, &ierr) {
		return ierr.Category
	}
	return ""
}

// TransportCategory classifies a failed round trip as timeout or transport.
func TransportCategory(err error) Category {
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}
	return CategoryTransport
}

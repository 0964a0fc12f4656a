package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// PaymentConfig selects the active gateway and carries every provider's
// credentials. Only the active provider's values are handed to its adapter.
type PaymentConfig struct {
	Gateway           string        `env:"PAYMENT_GATEWAY" envDefault:"mock"`
	Mode              string        `env:"PAYMENT_MODE" envDefault:"sandbox"`
	DescriptionPrefix string        `env:"PAYMENT_DESCRIPTION_PREFIX"`
	HTTPTimeout       time.Duration `env:"PAYMENT_HTTP_TIMEOUT" envDefault:"30s"`
	BaseURL           string        `env:"PAYMENT_BASE_URL"`

	Stripe StripeConfig
	Mollie MollieConfig
	PayPal PayPalConfig
	Mock   MockConfig
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

type MollieConfig struct {
	APIKey        string `env:"MOLLIE_API_KEY"`
	WebhookSecret string `env:"MOLLIE_WEBHOOK_SECRET"`
	WebhookURL    string `env:"MOLLIE_WEBHOOK_URL"`
}

type PayPalConfig struct {
	ClientID     string `env:"PAYPAL_CLIENT_ID"`
	ClientSecret string `env:"PAYPAL_CLIENT_SECRET"`
	WebhookID    string `env:"PAYPAL_WEBHOOK_ID"`
}

type MockConfig struct {
	WebhookSecret string `env:"MOCK_WEBHOOK_SECRET"`
}

// LoadPayment parses the payment settings from the environment.
func LoadPayment() (PaymentConfig, error) {
	var cfg PaymentConfig
	if err := env.Parse(&cfg); err != nil {
		return PaymentConfig{}, fmt.Errorf("parse payment config: %w", err)
	}
	cfg.Gateway = strings.ToLower(strings.TrimSpace(cfg.Gateway))
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch cfg.Mode {
	case "sandbox", "live":
	default:
		return PaymentConfig{}, fmt.Errorf("parse payment config: unsupported PAYMENT_MODE %q", cfg.Mode)
	}
	if cfg.HTTPTimeout <= 0 {
		return PaymentConfig{}, fmt.Errorf("parse payment config: PAYMENT_HTTP_TIMEOUT must be positive")
	}
	return cfg, nil
}

// Credentials returns the credential map for the selected gateway. Keys match
// what the adapter factories read.
func (c PaymentConfig) Credentials() map[string]string {
	switch c.Gateway {
	case "stripe":
		return compact(map[string]string{
			"secret_key":     c.Stripe.SecretKey,
			"webhook_secret": c.Stripe.WebhookSecret,
		})
	case "mollie":
		return compact(map[string]string{
			"api_key":        c.Mollie.APIKey,
			"webhook_secret": c.Mollie.WebhookSecret,
			"webhook_url":    c.Mollie.WebhookURL,
		})
	case "paypal":
		return compact(map[string]string{
			"client_id":     c.PayPal.ClientID,
			"client_secret": c.PayPal.ClientSecret,
			"webhook_id":    c.PayPal.WebhookID,
		})
	case "mock":
		return compact(map[string]string{
			"webhook_secret": c.Mock.WebhookSecret,
		})
	default:
		return map[string]string{}
	}
}

func compact(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out[key] = value
		}
	}
	return out
}

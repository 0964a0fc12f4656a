package payment

import (
	"github.com/smallbiznis/givebridge/internal/payment/adapters"
	"github.com/smallbiznis/givebridge/internal/payment/adapters/mock"
	"github.com/smallbiznis/givebridge/internal/payment/adapters/mollie"
	"github.com/smallbiznis/givebridge/internal/payment/adapters/paypal"
	"github.com/smallbiznis/givebridge/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/internal/payment/lock"
	"github.com/smallbiznis/givebridge/internal/payment/repository"
	paymentservice "github.com/smallbiznis/givebridge/internal/payment/service"
	"github.com/smallbiznis/givebridge/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	lock.Module,
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			stripe.NewFactory(),
			mollie.NewFactory(),
			paypal.NewFactory(),
			mock.NewFactory(),
		)
	}),
	fx.Provide(webhook.NewDispatcher),
	fx.Provide(func(d *webhook.Dispatcher) paymentdomain.EventDispatcher { return d }),
	fx.Provide(paymentservice.NewService),
	fx.Provide(func(s *paymentservice.Service) paymentdomain.Gateway { return s }),
	fx.Provide(webhook.NewService),
)

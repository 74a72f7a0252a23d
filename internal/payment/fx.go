package payment

import (
	"github.com/inkwavehq/inkwave/internal/config"
	"github.com/inkwavehq/inkwave/internal/payment/adapters"
	"github.com/inkwavehq/inkwave/internal/payment/adapters/fatora"
	"github.com/inkwavehq/inkwave/internal/payment/adapters/paddle"
	"github.com/inkwavehq/inkwave/internal/payment/adapters/stripe"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	"github.com/inkwavehq/inkwave/internal/payment/webhook"
	"github.com/inkwavehq/inkwave/pkg/repository"
	"go.uber.org/fx"
)

func newRegistry(cfg config.Config) *adapters.Registry {
	return adapters.NewRegistry(
		stripe.New(cfg.Stripe),
		paddle.New(cfg.Paddle),
		fatora.New(cfg.Fatora),
	)
}

var Module = fx.Module("payment.webhook",
	fx.Provide(
		newRegistry,
		repository.ProvideStore[paymentdomain.WebhookEvent],
		webhook.NewService,
	),
)

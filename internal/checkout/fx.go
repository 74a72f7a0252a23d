package checkout

import (
	checkoutdomain "github.com/inkwavehq/inkwave/internal/checkout/domain"
	"github.com/inkwavehq/inkwave/internal/checkout/service"
	"github.com/inkwavehq/inkwave/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(
		repository.ProvideStore[checkoutdomain.CheckoutOrder],
		service.NewService,
	),
)

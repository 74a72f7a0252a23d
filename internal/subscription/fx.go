package subscription

import (
	"github.com/inkwavehq/inkwave/internal/subscription/repository"
	"github.com/inkwavehq/inkwave/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

package credits

import (
	"github.com/inkwavehq/inkwave/internal/credits/repository"
	"github.com/inkwavehq/inkwave/internal/credits/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credits.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

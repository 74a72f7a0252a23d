package generation

import (
	"github.com/inkwavehq/inkwave/internal/config"
	"github.com/inkwavehq/inkwave/internal/generation/openai"
	"github.com/inkwavehq/inkwave/internal/generation/service"
	"go.uber.org/fx"
)

func newClient(cfg config.Config) *openai.Client {
	return openai.NewClient(cfg.OpenAI)
}

var Module = fx.Module("generation.service",
	fx.Provide(
		newClient,
		service.NewService,
	),
)

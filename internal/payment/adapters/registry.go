package adapters

import (
	"strings"

	"github.com/inkwavehq/inkwave/internal/payment/domain"
)

type Registry struct {
	adapters map[string]domain.ProviderAdapter
}

func NewRegistry(adapters ...domain.ProviderAdapter) *Registry {
	registry := &Registry{adapters: map[string]domain.ProviderAdapter{}}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(adapter.Provider()))
		if provider == "" {
			continue
		}
		registry.adapters[provider] = adapter
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	_, ok := r.adapters[provider]
	return ok
}

func (r *Registry) Get(provider string) (domain.ProviderAdapter, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return adapter, nil
}

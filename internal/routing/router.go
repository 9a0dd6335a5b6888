package routing

import (
	"context"
	"fmt"

	"github.com/davidbz/ttibu/internal/domain"
)

// CatalogRouter resolves providers through the model catalog.
type CatalogRouter struct {
	catalog  domain.ModelCatalog
	registry domain.ProviderRegistry
}

// NewRouter creates a new router.
func NewRouter(catalog domain.ModelCatalog, registry domain.ProviderRegistry) *CatalogRouter {
	return &CatalogRouter{
		catalog:  catalog,
		registry: registry,
	}
}

// Route selects the provider that serves the requested model and the bare
// model code to send it. The provider must also be known to the registry,
// otherwise no adapter could reach it.
func (r *CatalogRouter) Route(ctx context.Context, req *domain.RouteRequest) (domain.RouteResult, error) {
	if req == nil {
		return domain.RouteResult{}, fmt.Errorf("%w: route request cannot be nil", domain.ErrInvalidInput)
	}

	if req.Model == "" {
		return domain.RouteResult{}, fmt.Errorf("%w: model name is required", domain.ErrInvalidInput)
	}

	providerCode, modelCode, err := r.catalog.ResolveModel(ctx, req.Model)
	if err != nil {
		return domain.RouteResult{}, err
	}

	descriptor, err := r.registry.Get(ctx, providerCode)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("model %s served by unsupported provider: %w", req.Model, err)
	}

	return domain.RouteResult{ProviderCode: descriptor.Code, Model: modelCode}, nil
}

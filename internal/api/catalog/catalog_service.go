package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

const catalogCacheKey = "catalog:all"

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for catalog reads. It also
// satisfies planner.CatalogLoader.
type Service interface {
	LoadCatalog(ctx context.Context) ([]types.Location, error)
	SearchLocations(ctx context.Context, term string, category types.Category) ([]types.Location, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	repository Repository
	cache      *cache.Cache
	group      singleflight.Group
}

func NewServiceImpl(repository Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repository: repository,
		cache:      cache.New(10*time.Minute, 30*time.Minute),
	}
}

// LoadCatalog returns the full location catalog, cached. Concurrent cold
// loads collapse into one repository query via singleflight.
func (s *ServiceImpl) LoadCatalog(ctx context.Context) ([]types.Location, error) {
	ctx, span := otel.Tracer("CatalogService").Start(ctx, "LoadCatalog")
	defer span.End()

	if cached, found := s.cache.Get(catalogCacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]types.Location), nil
	}

	result, err, _ := s.group.Do(catalogCacheKey, func() (interface{}, error) {
		locations, err := s.repository.GetAllLocations(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(catalogCacheKey, locations, cache.DefaultExpiration)
		return locations, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load catalog", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	locations := result.([]types.Location)
	span.SetAttributes(attribute.Int("catalog.count", len(locations)))
	return locations, nil
}

// SearchLocations runs a server-side filtered catalog query, uncached.
func (s *ServiceImpl) SearchLocations(ctx context.Context, term string, category types.Category) ([]types.Location, error) {
	locations, err := s.repository.SearchLocations(ctx, term, category)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to search locations", slog.Any("error", err))
		return nil, err
	}
	return locations, nil
}

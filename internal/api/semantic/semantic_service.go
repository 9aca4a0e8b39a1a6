package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-trip-explorer/app/tracer"
	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

const resolutionTemperature float32 = 0.1

// CatalogProvider supplies the location list embedded in the resolution
// prompt.
type CatalogProvider interface {
	LoadCatalog(ctx context.Context) ([]types.Location, error)
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service resolves a free-text query to an ordered list of location ids.
// It satisfies planner.SearchResolver.
type Service interface {
	ResolveSearch(ctx context.Context, query string) ([]string, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	catalog   CatalogProvider
	generator TextGenerator
	cache     *cache.Cache
	group     singleflight.Group
}

func NewServiceImpl(catalog CatalogProvider, generator TextGenerator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		catalog:   catalog,
		generator: generator,
		cache:     cache.New(15*time.Minute, 30*time.Minute),
	}
}

// ResolveSearch asks the model which catalog locations match the query and
// returns their ids in the model's relevance order. Unknown ids are dropped
// and duplicates keep their first position. Results are memoized per query;
// concurrent identical queries collapse into one model call.
func (s *ServiceImpl) ResolveSearch(ctx context.Context, query string) ([]string, error) {
	ctx, span := otel.Tracer("SemanticService").Start(ctx, "ResolveSearch")
	defer span.End()

	l := s.logger.With(slog.String("method", "ResolveSearch"))

	cacheKey := "semantic:" + strings.ToLower(strings.TrimSpace(query))
	if cached, found := s.cache.Get(cacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]string), nil
	}

	result, err, _ := s.group.Do(cacheKey, func() (interface{}, error) {
		ids, err := s.resolve(ctx, query)
		if err != nil {
			return nil, err
		}
		s.cache.Set(cacheKey, ids, cache.DefaultExpiration)
		return ids, nil
	})
	if err != nil {
		l.ErrorContext(ctx, "Semantic resolution failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolution failed")
		tracer.Get().SemanticResolutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", false)))
		return nil, fmt.Errorf("failed to resolve search %q: %w", query, err)
	}

	tracer.Get().SemanticResolutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", true)))
	span.SetStatus(codes.Ok, "resolved")
	return result.([]string), nil
}

func (s *ServiceImpl) resolve(ctx context.Context, query string) ([]string, error) {
	locations, err := s.catalog.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog for prompt: %w", err)
	}

	txt, err := s.generator.GenerateContent(ctx, buildResolutionPrompt(query, locations), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](resolutionTemperature),
	})
	if err != nil {
		return nil, err
	}

	ids, err := parseLocationIDs(txt)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(locations))
	for _, loc := range locations {
		known[loc.ID] = true
	}
	seen := make(map[string]bool, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if known[id] && !seen[id] {
			seen[id] = true
			valid = append(valid, id)
		}
	}
	return valid, nil
}

func buildResolutionPrompt(query string, locations []types.Location) string {
	var sb strings.Builder
	sb.WriteString("You match a traveller's free-text request against a fixed catalog of locations.\n")
	sb.WriteString("Return ONLY valid JSON with this exact structure, no markdown fences, no commentary:\n")
	sb.WriteString(`{"location_ids": ["id1", "id2"]}` + "\n\n")
	sb.WriteString("Order the ids from most to least relevant. If nothing matches, return an empty list.\n")
	sb.WriteString("Only use ids that appear in the catalog below.\n\n")
	fmt.Fprintf(&sb, "Request: %s\n\nCatalog:\n", query)
	for _, loc := range locations {
		fmt.Fprintf(&sb, "- id=%s name=%q category=%s description=%q\n",
			loc.ID, loc.Name, loc.Category, loc.Description)
	}
	return sb.String()
}

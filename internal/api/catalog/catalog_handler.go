package catalog

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-explorer/internal/api"
	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

type Handler struct {
	catalogService Service
	logger         *slog.Logger
}

func NewHandler(catalogService Service, logger *slog.Logger) *Handler {
	return &Handler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// GetLocations returns the full session catalog.
func (h *Handler) GetLocations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "GetLocations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/locations"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetLocations"))

	locations, err := h.catalogService.LoadCatalog(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load catalog", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load locations")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, locations)
}

// SearchLocations runs a filtered catalog query from query parameters.
func (h *Handler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "SearchLocations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/locations/search"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchLocations"))

	term := r.URL.Query().Get("q")
	category := types.Category(r.URL.Query().Get("category"))
	if category != "" && !category.IsValid() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Unknown category")
		return
	}

	locations, err := h.catalogService.SearchLocations(ctx, term, category)
	if err != nil {
		l.ErrorContext(ctx, "Failed to search locations", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to search locations")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, locations)
}

// GetCategories lists the categories present in the catalog, for the
// filter panel.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetCategories"))

	locations, err := h.catalogService.LoadCatalog(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load catalog", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load categories")
		return
	}

	present := make(map[types.Category]bool)
	for _, loc := range locations {
		present[loc.Category] = true
	}
	categories := make([]types.Category, 0, len(present))
	for _, c := range types.Categories {
		if present[c] {
			categories = append(categories, c)
		}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, categories)
}

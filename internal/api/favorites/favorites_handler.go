package favorites

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/FACorreiaa/go-trip-explorer/app/middleware"
	"github.com/FACorreiaa/go-trip-explorer/internal/api"
	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

type Handler struct {
	favoritesService Service
	logger           *slog.Logger
}

func NewHandler(favoritesService Service, logger *slog.Logger) *Handler {
	return &Handler{
		favoritesService: favoritesService,
		logger:           logger,
	}
}

// GetFavorites returns the caller's favourited location ids. Callers
// without a user context get an empty list, not an error.
func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FavoritesHandler").Start(r.Context(), "GetFavorites", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favourites"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetFavorites"))

	userID := userIDFromContext(r)
	ids, err := h.favoritesService.GetFavorites(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get favourites", slog.Any("error", err))
		api.WriteJSONResponse(w, r, http.StatusOK, []string{})
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, ids)
}

// ToggleFavorite flips membership for the requested location.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FavoritesHandler").Start(r.Context(), "ToggleFavorite", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favourites/toggle"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ToggleFavorite"))

	userID := userIDFromContext(r)
	if userID == uuid.Nil {
		l.WarnContext(ctx, "Toggle attempted without authentication")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID.String()))

	var req types.ToggleFavoriteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.LocationID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "location_id is required")
		return
	}

	favorited, err := h.favoritesService.ToggleFavorite(ctx, userID, req.LocationID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to toggle favourite", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to toggle favourite")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.ToggleFavoriteResponse{
		LocationID: req.LocationID,
		Favorited:  favorited,
	})
}

func userIDFromContext(r *http.Request) uuid.UUID {
	userIDStr, ok := appMiddleware.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		return uuid.Nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil
	}
	return userID
}

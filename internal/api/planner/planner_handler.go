package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/FACorreiaa/go-trip-explorer/app/middleware"
	"github.com/FACorreiaa/go-trip-explorer/internal/api"
	"github.com/FACorreiaa/go-trip-explorer/internal/planner"
	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

type Handler struct {
	sessions *SessionManager
	logger   *slog.Logger
}

func NewHandler(sessions *SessionManager, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger,
	}
}

// StateResponse is the full snapshot a client needs to render the
// exploration view.
type StateResponse struct {
	Visible    []types.Location  `json:"visible"`
	Filters    types.FilterState `json:"filters"`
	SyncStatus types.SyncStatus  `json:"sync_status"`
	SyncError  string            `json:"sync_error,omitempty"`
	Itinerary  *types.Itinerary  `json:"itinerary,omitempty"`
	Fit        *FitSignal        `json:"fit,omitempty"`
}

// FitSignal is the one-shot viewport adjustment request; the client acks
// it once the camera move has been applied.
type FitSignal struct {
	Bounds    types.Bounds     `json:"bounds"`
	Locations []types.Location `json:"locations"`
}

// OpenSession starts (or restarts) the caller's exploration session,
// optionally opening an itinerary for editing in the same call.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "OpenSession", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/planner/session"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "OpenSession"))

	userID, ok := authenticatedUser(w, r, l)
	if !ok {
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID.String()))

	var req struct {
		ItineraryID *uuid.UUID `json:"itinerary_id,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := api.DecodeJSONBody(w, r, &req); err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	session, err := h.sessions.Open(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to open planner session", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to open planner session")
		return
	}

	if req.ItineraryID != nil {
		if _, err := session.OpenItinerary(ctx, *req.ItineraryID); err != nil {
			writePlannerError(w, r, l, err, "Failed to open itinerary")
			return
		}
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, stateSnapshot(session))
}

// CloseSession tears the session down. An in-flight itinerary save is not
// cancelled.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "CloseSession"))

	userID, ok := authenticatedUser(w, r, l)
	if !ok {
		return
	}

	h.sessions.Close(userID)
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Session closed"})
}

// GetState returns the current snapshot: visible set, filters, sync status
// and any pending fit signal.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "GetState"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, stateSnapshot(session))
}

// SetViewport updates the map bounds; the list view follows when no
// explicit filter is active.
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "SetViewport"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	var bounds types.Bounds
	if err := api.DecodeJSONBody(w, r, &bounds); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session.SetBounds(bounds)
	api.WriteJSONResponse(w, r, http.StatusOK, stateSnapshot(session))
}

// AckFit consumes the pending fit signal after the client moved the camera.
func (h *Handler) AckFit(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "AckFit"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	session.Viewport().AckFit()
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true})
}

// SetFilters replaces the explicit filter selection. Setting any filter
// clears an active search.
func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "SetFilters"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	var req struct {
		Categories    []types.Category `json:"categories"`
		FavoritesOnly bool             `json:"favorites_only"`
		Days          []int            `json:"days"`
	}
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	for _, c := range req.Categories {
		if !c.IsValid() {
			api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Unknown category %q", c))
			return
		}
	}

	session.SetFilters(req.Categories, req.FavoritesOnly, req.Days)

	api.WriteJSONResponse(w, r, http.StatusOK, stateSnapshot(session))
}

// RunSearch starts a literal or semantic search. Search resets the
// explicit filters.
func (h *Handler) RunSearch(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "RunSearch", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/planner/search"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "RunSearch"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	var req struct {
		Mode types.SearchMode `json:"mode"`
		Term string           `json:"term"`
	}
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Mode {
	case types.SearchModeLiteral:
		session.RunLiteralSearch(req.Term)
	case types.SearchModeSemantic:
		if err := session.RunSemanticSearch(ctx, req.Term); err != nil {
			l.ErrorContext(ctx, "Semantic search failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadGateway, "Semantic search is unavailable right now")
			return
		}
	default:
		api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Unknown search mode %q", req.Mode))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, stateSnapshot(session))
}

// ClearSearch drops the active search, restoring the unfiltered view.
func (h *Handler) ClearSearch(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "ClearSearch"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	session.ClearSearch()
	api.WriteJSONResponse(w, r, http.StatusOK, stateSnapshot(session))
}

// ToggleFavorite flips the favourite state of one location through the
// session, so the visible set and any favourites-only filter react.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "ToggleFavorite", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/planner/favourites/{locationID}/toggle"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ToggleFavorite"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	locationID := chi.URLParam(r, "locationID")
	if err := session.ToggleFavorite(ctx, locationID); err != nil {
		writePlannerError(w, r, l, err, "Failed to toggle favourite")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.ToggleFavoriteResponse{
		LocationID: locationID,
		Favorited:  session.Favorites().IsFavorited(locationID),
	})
}

// AddDay appends a day to the open itinerary.
func (h *Handler) AddDay(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "AddDay"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	day, err := session.AddDay()
	if err != nil {
		writePlannerError(w, r, l, err, "Failed to add day")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, day)
}

// RemoveDay deletes a day; later days renumber to stay contiguous.
func (h *Handler) RemoveDay(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "RemoveDay"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	n, ok := dayNumber(w, r)
	if !ok {
		return
	}

	if err := session.RemoveDay(n); err != nil {
		writePlannerError(w, r, l, err, "Failed to remove day")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true})
}

// AddLocationToDay appends a catalog location to a day. Adding a location
// already on the day is a no-op.
func (h *Handler) AddLocationToDay(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "AddLocationToDay"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	n, ok := dayNumber(w, r)
	if !ok {
		return
	}

	var req struct {
		LocationID string `json:"location_id"`
	}
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := session.AddLocationToDay(n, req.LocationID); err != nil {
		writePlannerError(w, r, l, err, "Failed to add location to day")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true})
}

// RemoveLocationFromDay removes one location from a day.
func (h *Handler) RemoveLocationFromDay(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "RemoveLocationFromDay"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	n, ok := dayNumber(w, r)
	if !ok {
		return
	}

	if err := session.RemoveLocationFromDay(n, chi.URLParam(r, "locationID")); err != nil {
		writePlannerError(w, r, l, err, "Failed to remove location from day")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true})
}

// StreamEvents pushes engine events to the client over SSE until the
// connection drops.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "StreamEvents"))

	session, ok := h.sessionFromRequest(w, r, l)
	if !ok {
		return
	}

	// Publishes are synchronous inside the engine; the buffered channel
	// decouples them from the write loop. A slow client drops events
	// rather than stalling state transitions.
	eventCh := make(chan planner.Event, 64)
	unsubscribe := session.Subscribe(func(ev planner.Event) {
		select {
		case eventCh <- ev:
		default:
		}
	})
	defer unsubscribe()

	l.InfoContext(ctx, "Started planner event stream")

	for {
		select {
		case ev := <-eventCh:
			data, err := json.Marshal(ev)
			if err != nil {
				l.ErrorContext(ctx, "Failed to marshal event", slog.Any("error", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		case <-ctx.Done():
			l.InfoContext(ctx, "Planner event stream closed")
			return
		}
	}
}

func stateSnapshot(session *planner.Session) StateResponse {
	resp := StateResponse{
		Visible:    session.VisibleSet(),
		Filters:    session.Filters(),
		SyncStatus: session.SyncStatus(),
	}
	if err := session.SyncError(); err != nil {
		resp.SyncError = err.Error()
	}
	if itinerary, ok := session.Itinerary(); ok {
		resp.Itinerary = &itinerary
	}
	if locations, bounds, pending := session.Viewport().PendingFit(); pending {
		resp.Fit = &FitSignal{Bounds: bounds, Locations: locations}
	}
	return resp
}

func (h *Handler) sessionFromRequest(w http.ResponseWriter, r *http.Request, l *slog.Logger) (*planner.Session, bool) {
	userID, ok := authenticatedUser(w, r, l)
	if !ok {
		return nil, false
	}
	session, found := h.sessions.Get(userID)
	if !found {
		api.ErrorResponse(w, r, http.StatusNotFound, "No active planner session")
		return nil, false
	}
	return session, true
}

func dayNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "dayNumber"))
	if err != nil || n < 1 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid day number")
		return 0, false
	}
	return n, true
}

func authenticatedUser(w http.ResponseWriter, r *http.Request, l *slog.Logger) (uuid.UUID, bool) {
	userIDStr, ok := appMiddleware.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		l.ErrorContext(r.Context(), "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

func writePlannerError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, planner.ErrLoginRequired):
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, planner.ErrToggleInFlight):
		api.ErrorResponse(w, r, http.StatusConflict, "A toggle for this location is already in flight")
	case errors.Is(err, planner.ErrNoItinerary):
		api.ErrorResponse(w, r, http.StatusConflict, "No itinerary is open for editing")
	case errors.Is(err, planner.ErrLastDay):
		api.ErrorResponse(w, r, http.StatusConflict, "An itinerary keeps at least one day")
	case errors.Is(err, planner.ErrNoSuchDay):
		api.ErrorResponse(w, r, http.StatusNotFound, "No such day")
	case errors.Is(err, planner.ErrUnknownLocation):
		api.ErrorResponse(w, r, http.StatusNotFound, "Unknown location")
	case errors.Is(err, api.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Itinerary not found")
	case errors.Is(err, api.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "Itinerary belongs to another user")
	default:
		l.ErrorContext(r.Context(), fallback, slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fallback)
	}
}

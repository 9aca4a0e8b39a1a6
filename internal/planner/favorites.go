package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-trip-explorer/app/tracer"
	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// FavoritesBackend is the remote favourites store.
type FavoritesBackend interface {
	// GetFavorites returns the user's favourited location ids. An
	// unauthenticated user gets an empty list, never an error.
	GetFavorites(ctx context.Context, userID uuid.UUID) ([]string, error)
	// ToggleFavorite flips membership and returns the new state.
	ToggleFavorite(ctx context.Context, userID uuid.UUID, locationID string) (bool, error)
}

// FavoriteStore holds the session's favourited location ids with optimistic
// per-id toggling. One instance is shared by every consumer that renders
// locations, so membership reads are consistent everywhere.
type FavoriteStore struct {
	logger  *slog.Logger
	backend FavoritesBackend
	userID  uuid.UUID
	events  *broadcaster

	mu       sync.Mutex
	ids      map[string]struct{}
	inflight map[string]struct{}
}

// NewFavoriteStore builds an empty store for userID. A Nil userID means the
// session is unauthenticated and every toggle is refused locally.
func NewFavoriteStore(backend FavoritesBackend, userID uuid.UUID, events *broadcaster, logger *slog.Logger) *FavoriteStore {
	return &FavoriteStore{
		logger:   logger,
		backend:  backend,
		userID:   userID,
		events:   events,
		ids:      make(map[string]struct{}),
		inflight: make(map[string]struct{}),
	}
}

// Load seeds the store from the backend. A backend failure degrades to an
// empty set rather than failing the session.
func (s *FavoriteStore) Load(ctx context.Context) {
	if s.userID == uuid.Nil {
		return
	}
	ids, err := s.backend.GetFavorites(ctx, s.userID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load favourites, starting empty", slog.Any("error", err))
		return
	}
	s.mu.Lock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()
	s.events.publish(Event{Kind: EventFavoritesChanged})
}

// Toggle optimistically flips membership for locationID and confirms it with
// the backend, reverting on failure. A toggle for an id that is already in
// flight, or from an unauthenticated session, is refused without touching
// state or the network.
func (s *FavoriteStore) Toggle(ctx context.Context, locationID string) error {
	ctx, span := otel.Tracer("FavoriteStore").Start(ctx, "Toggle")
	defer span.End()
	span.SetAttributes(attribute.String("location.id", locationID))

	if s.userID == uuid.Nil {
		return ErrLoginRequired
	}

	s.mu.Lock()
	if _, busy := s.inflight[locationID]; busy {
		s.mu.Unlock()
		return ErrToggleInFlight
	}
	s.inflight[locationID] = struct{}{}
	_, wasFavorited := s.ids[locationID]
	s.mu.Unlock()

	mutation := optimisticMutation{
		apply: func() {
			s.setMembership(locationID, !wasFavorited)
		},
		attempt: func(ctx context.Context) error {
			_, err := s.backend.ToggleFavorite(ctx, s.userID, locationID)
			return err
		},
		revert: func() {
			s.setMembership(locationID, wasFavorited)
		},
	}
	err := mutation.run(ctx)

	s.mu.Lock()
	delete(s.inflight, locationID)
	s.mu.Unlock()

	tracer.Get().FavoriteTogglesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("success", err == nil)))

	if err != nil {
		s.logger.ErrorContext(ctx, "Favourite toggle failed, reverted", slog.String("locationID", locationID), slog.Any("error", err))
		span.RecordError(err)
		return fmt.Errorf("toggle favourite: %w", err)
	}
	return nil
}

func (s *FavoriteStore) setMembership(locationID string, favorited bool) {
	s.mu.Lock()
	if favorited {
		s.ids[locationID] = struct{}{}
	} else {
		delete(s.ids, locationID)
	}
	s.mu.Unlock()
	s.events.publish(Event{Kind: EventFavoritesChanged})
}

// IsFavorited reports current membership. Safe from any consumer.
func (s *FavoriteStore) IsFavorited(locationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[locationID]
	return ok
}

// IsLoading reports whether a toggle for locationID is in flight.
func (s *FavoriteStore) IsLoading(locationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[locationID]
	return ok
}

// IDs returns a snapshot of the favourited ids.
func (s *FavoriteStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// FilterFavorited keeps the locations currently favourited, preserving order.
func (s *FavoriteStore) FilterFavorited(locations []types.Location) []types.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Location, 0, len(locations))
	for _, loc := range locations {
		if _, ok := s.ids[loc.ID]; ok {
			out = append(out, loc)
		}
	}
	return out
}

package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trip-explorer/app/tracer"
	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// SearchResolver is the external capability resolving free text to an
// ordered list of location ids. The session never trusts the ids blindly;
// they are re-validated against the catalog.
type SearchResolver interface {
	ResolveSearch(ctx context.Context, query string) ([]string, error)
}

// SessionParams carries the collaborators and tuning for one session.
type SessionParams struct {
	UserID       uuid.UUID
	Catalog      CatalogLoader
	Favorites    FavoritesBackend
	Itineraries  ItineraryBackend
	Resolver     SearchResolver
	SaveDebounce time.Duration
	SaveRetries  int
	Logger       *slog.Logger
}

// Session is the reactive core of the exploration view: it keeps the map
// viewport, the filtered list, the active filters/search, favourite state,
// and the open itinerary mutually consistent, persisting itinerary edits
// through the debounced synchronizer.
//
// All state transitions are serialized; network calls run outside the lock
// so further synchronous state changes stay responsive while a call is
// outstanding.
type Session struct {
	logger    *slog.Logger
	events    *broadcaster
	catalog   *Catalog
	favorites *FavoriteStore
	viewport  *Viewport
	resolver  SearchResolver

	itineraries  ItineraryBackend
	userID       uuid.UUID
	saveDebounce time.Duration
	saveRetries  int

	mu      sync.Mutex
	filters types.FilterState
	visible []types.Location
	editor  *Editor
	syncer  *Synchronizer

	unsubscribe func()
}

// NewSession bootstraps a session: the catalog and the user's favourites
// load concurrently, then the initial visible set is derived. A catalog
// failure fails the session; a favourites failure degrades to an empty set.
func NewSession(ctx context.Context, p SessionParams) (*Session, error) {
	events := newBroadcaster()

	s := &Session{
		logger:       p.Logger,
		events:       events,
		viewport:     NewViewport(events),
		resolver:     p.Resolver,
		itineraries:  p.Itineraries,
		userID:       p.UserID,
		saveDebounce: p.SaveDebounce,
		saveRetries:  p.SaveRetries,
	}
	s.favorites = NewFavoriteStore(p.Favorites, p.UserID, events, p.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		locations, err := p.Catalog.LoadCatalog(gctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		s.catalog = NewCatalog(locations)
		return nil
	})
	g.Go(func() error {
		s.favorites.Load(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.visible = ComputeVisibleSet(s.catalog, s.filters, s.favorites.IsFavorited, nil)
	s.mu.Unlock()

	// Favourite changes can alter the visible set when the favourites-only
	// filter is active.
	s.unsubscribe = events.subscribe(func(ev Event) {
		if ev.Kind != EventFavoritesChanged {
			return
		}
		s.mu.Lock()
		favoritesOnly := s.filters.FavoritesOnly
		s.mu.Unlock()
		if favoritesOnly {
			s.recompute()
		}
	})

	return s, nil
}

// Subscribe registers an observer for session events and returns an
// unsubscribe func.
func (s *Session) Subscribe(fn func(Event)) func() {
	return s.events.subscribe(fn)
}

// Catalog returns the session's immutable catalog.
func (s *Session) Catalog() *Catalog {
	return s.catalog
}

// Viewport returns the session's viewport reconciler.
func (s *Session) Viewport() *Viewport {
	return s.viewport
}

// Favorites returns the shared favourite store.
func (s *Session) Favorites() *FavoriteStore {
	return s.favorites
}

// Filters returns the current filter state.
func (s *Session) Filters() types.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// FilteredSet returns the full filtered result, including off-screen
// matches.
func (s *Session) FilteredSet() []types.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// VisibleSet returns what the list view shows: the whole filtered set when
// a search or explicit filter is active (so off-screen matches aren't
// hidden), otherwise only the filtered locations inside the current map
// bounds (so the list mirrors what's on screen).
func (s *Session) VisibleSet() []types.Location {
	s.mu.Lock()
	filtered := s.visible
	explicit := s.filters.Explicit()
	s.mu.Unlock()
	if explicit {
		return filtered
	}
	return s.viewport.VisibleInBounds(filtered)
}

// SetBounds records new map bounds after a pan or zoom.
func (s *Session) SetBounds(b types.Bounds) {
	s.viewport.SetBounds(b)
}

// SetCategories replaces the category selection. Any active search is
// cleared; filters and search modes are radio-button exclusive.
func (s *Session) SetCategories(categories []types.Category) {
	s.mu.Lock()
	s.filters.ClearSearch()
	s.filters.Categories = categories
	s.mu.Unlock()
	s.recompute()
}

// SetFavoritesOnly toggles the favourites-only filter, clearing any active
// search.
func (s *Session) SetFavoritesOnly(on bool) {
	s.mu.Lock()
	s.filters.ClearSearch()
	s.filters.FavoritesOnly = on
	s.mu.Unlock()
	s.recompute()
}

// SetDayFilter replaces the selected day numbers (planner context),
// clearing any active search.
func (s *Session) SetDayFilter(days []int) {
	s.mu.Lock()
	s.filters.ClearSearch()
	s.filters.Days = days
	s.mu.Unlock()
	s.recompute()
}

// SetFilters replaces the entire explicit filter selection in one step:
// any active search is cleared, all three dimensions are applied under one
// lock, and the visible set is re-derived exactly once.
func (s *Session) SetFilters(categories []types.Category, favoritesOnly bool, days []int) {
	s.mu.Lock()
	s.filters.ClearSearch()
	s.filters.Categories = categories
	s.filters.FavoritesOnly = favoritesOnly
	s.filters.Days = days
	s.mu.Unlock()
	s.recompute()
}

// RunLiteralSearch commits a literal search. The search alone determines
// the result set, so explicit filters are reset.
func (s *Session) RunLiteralSearch(term string) {
	s.mu.Lock()
	s.resetFiltersLocked()
	s.filters.Search = types.SearchModeLiteral
	s.filters.SearchTerm = term
	s.mu.Unlock()
	s.recompute()
}

// RunSemanticSearch resolves free text through the external resolver and
// commits the result as the active semantic search. Ids unknown to the
// catalog are dropped during recomputation. Resolver failure leaves the
// session state untouched.
func (s *Session) RunSemanticSearch(ctx context.Context, query string) error {
	ctx, span := otel.Tracer("Session").Start(ctx, "RunSemanticSearch")
	defer span.End()

	ids, err := s.resolver.ResolveSearch(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Semantic search resolution failed", slog.Any("error", err))
		span.RecordError(err)
		return fmt.Errorf("resolve search: %w", err)
	}
	span.SetAttributes(attribute.Int("resolved.count", len(ids)))

	s.mu.Lock()
	s.resetFiltersLocked()
	s.filters.Search = types.SearchModeSemantic
	s.filters.SemanticIDs = ids
	s.mu.Unlock()
	s.recompute()
	return nil
}

// ClearSearch drops the active search mode and re-derives the result set
// from the explicit filters.
func (s *Session) ClearSearch() {
	s.mu.Lock()
	s.filters.ClearSearch()
	s.mu.Unlock()
	s.recompute()
}

func (s *Session) resetFiltersLocked() {
	s.filters = types.FilterState{}
}

// recompute derives the visible set from the latest state. When the set of
// matching ids changes (not a mere re-ordering) it asserts the one-shot
// fit-viewport signal; an empty result emits no fit so the map keeps its
// current view.
func (s *Session) recompute() {
	s.mu.Lock()
	var days []types.ItineraryDay
	if s.editor != nil {
		days = s.editor.Days()
	}
	next := ComputeVisibleSet(s.catalog, s.filters, s.favorites.IsFavorited, days)
	changed := !sameIDSet(s.visible, next)
	s.visible = next
	s.mu.Unlock()

	tracer.Get().VisibleSetRecomputes.Add(context.Background(), 1)

	if changed {
		s.viewport.RequestFit(next)
	}
	s.events.publish(Event{Kind: EventVisibleSetChanged})
}

// ToggleFavorite delegates to the shared favourite store and keeps the
// visible set in step when the favourites-only filter is active (via the
// store's change event).
func (s *Session) ToggleFavorite(ctx context.Context, locationID string) error {
	return s.favorites.Toggle(ctx, locationID)
}

// OpenItinerary fetches the itinerary and attaches an editor plus a fresh
// synchronizer to the session. Any previously open itinerary is closed
// first (its pending edits flush in the background).
func (s *Session) OpenItinerary(ctx context.Context, itineraryID uuid.UUID) (types.Itinerary, error) {
	if s.userID == uuid.Nil {
		return types.Itinerary{}, ErrLoginRequired
	}

	itinerary, err := s.itineraries.GetItinerary(ctx, s.userID, itineraryID)
	if err != nil {
		return types.Itinerary{}, fmt.Errorf("get itinerary: %w", err)
	}

	s.CloseItinerary()

	var editor *Editor
	var syncer *Synchronizer
	editor = NewEditor(*itinerary, func() {
		syncer.MarkDirty()
		s.onItineraryEdited()
	})
	syncer = NewSynchronizer(s.itineraries, s.userID, itineraryID, editor.Snapshot, s.saveDebounce, s.saveRetries, s.events, s.logger)

	s.mu.Lock()
	s.editor = editor
	s.syncer = syncer
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventItineraryChanged})
	return editor.Snapshot(), nil
}

func (s *Session) onItineraryEdited() {
	s.mu.Lock()
	dayFilterActive := len(s.filters.Days) > 0
	s.mu.Unlock()
	if dayFilterActive {
		s.recompute()
	}
	s.events.publish(Event{Kind: EventItineraryChanged})
}

// CloseItinerary detaches the editor and stops the synchronizer's timer.
// An in-flight save finishes in the background so the last edit is never
// lost; pending unsaved edits are flushed on the way out.
func (s *Session) CloseItinerary() {
	s.mu.Lock()
	syncer := s.syncer
	hadDayFilter := len(s.filters.Days) > 0
	s.editor = nil
	s.syncer = nil
	s.filters.Days = nil
	s.mu.Unlock()

	if syncer != nil {
		syncer.Close()
	}
	if hadDayFilter {
		s.recompute()
	}
}

// Itinerary returns a snapshot of the open itinerary, or false when none
// is open.
func (s *Session) Itinerary() (types.Itinerary, bool) {
	s.mu.Lock()
	editor := s.editor
	s.mu.Unlock()
	if editor == nil {
		return types.Itinerary{}, false
	}
	return editor.Snapshot(), true
}

// SyncStatus reports the open itinerary's persistence status; clean when
// no itinerary is open.
func (s *Session) SyncStatus() types.SyncStatus {
	s.mu.Lock()
	syncer := s.syncer
	s.mu.Unlock()
	if syncer == nil {
		return types.SyncStatusClean
	}
	return syncer.Status()
}

// SyncError returns the error behind an error sync status, if any.
func (s *Session) SyncError() error {
	s.mu.Lock()
	syncer := s.syncer
	s.mu.Unlock()
	if syncer == nil {
		return nil
	}
	return syncer.LastError()
}

func (s *Session) currentEditor() (*Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor == nil {
		return nil, ErrNoItinerary
	}
	return s.editor, nil
}

// AddDay appends a day to the open itinerary.
func (s *Session) AddDay() (types.ItineraryDay, error) {
	editor, err := s.currentEditor()
	if err != nil {
		return types.ItineraryDay{}, err
	}
	return editor.AddDay(), nil
}

// RemoveDay deletes day n from the open itinerary, renumbering later days.
func (s *Session) RemoveDay(n int) error {
	editor, err := s.currentEditor()
	if err != nil {
		return err
	}
	return editor.RemoveDay(n)
}

// AddLocationToDay plans a catalog location into day n. Unknown location
// ids are refused; re-adding is a no-op.
func (s *Session) AddLocationToDay(n int, locationID string) error {
	if !s.catalog.Has(locationID) {
		return ErrUnknownLocation
	}
	editor, err := s.currentEditor()
	if err != nil {
		return err
	}
	return editor.AddLocationToDay(n, locationID)
}

// RemoveLocationFromDay removes a location from day n.
func (s *Session) RemoveLocationFromDay(n int, locationID string) error {
	editor, err := s.currentEditor()
	if err != nil {
		return err
	}
	return editor.RemoveLocationFromDay(n, locationID)
}

// Close tears the session down: observer detached, itinerary closed with
// its pending edits flushed. Safe to call more than once.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.CloseItinerary()
}

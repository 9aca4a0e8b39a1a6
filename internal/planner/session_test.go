package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

type stubCatalogLoader struct {
	locations []types.Location
	err       error
}

func (s *stubCatalogLoader) LoadCatalog(ctx context.Context) ([]types.Location, error) {
	return s.locations, s.err
}

// MockSearchResolver is a mock implementation of SearchResolver
type MockSearchResolver struct {
	mock.Mock
}

func (m *MockSearchResolver) ResolveSearch(ctx context.Context, query string) ([]string, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func sessionLocations() []types.Location {
	return []types.Location{
		{ID: "tower", Name: "Belem Tower", Category: types.CategoryLandmark, Latitude: 38.6916, Longitude: -9.2160},
		{ID: "museum", Name: "Tile Museum", Category: types.CategoryMuseum, Latitude: 38.7250, Longitude: -9.1135},
		{ID: "park", Name: "Eduardo VII Park", Category: types.CategoryPark, Latitude: 38.7280, Longitude: -9.1527},
		{ID: "cafe", Name: "Pasteis Cafe", Category: types.CategoryCafe, Latitude: 38.6970, Longitude: -9.2033},
	}
}

type sessionFixture struct {
	session     *Session
	favorites   *MockFavoritesBackend
	itineraries *MockItineraryBackend
	resolver    *MockSearchResolver
	userID      uuid.UUID
}

func setupSession(t *testing.T, userID uuid.UUID) *sessionFixture {
	t.Helper()
	favorites := new(MockFavoritesBackend)
	itineraries := new(MockItineraryBackend)
	resolver := new(MockSearchResolver)

	if userID != uuid.Nil {
		favorites.On("GetFavorites", mock.Anything, userID).Return([]string{}, nil).Once()
	}

	session, err := NewSession(context.Background(), SessionParams{
		UserID:       userID,
		Catalog:      &stubCatalogLoader{locations: sessionLocations()},
		Favorites:    favorites,
		Itineraries:  itineraries,
		Resolver:     resolver,
		SaveDebounce: testDebounce,
		SaveRetries:  1,
		Logger:       testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(session.Close)

	return &sessionFixture{
		session:     session,
		favorites:   favorites,
		itineraries: itineraries,
		resolver:    resolver,
		userID:      userID,
	}
}

func TestNewSession_CatalogFailureFailsSession(t *testing.T) {
	favorites := new(MockFavoritesBackend)
	favorites.On("GetFavorites", mock.Anything, mock.Anything).Return([]string{}, nil).Maybe()

	_, err := NewSession(context.Background(), SessionParams{
		UserID:    uuid.New(),
		Catalog:   &stubCatalogLoader{err: errors.New("catalog unavailable")},
		Favorites: favorites,
		Logger:    testLogger(),
	})
	require.Error(t, err)
}

func TestSession_ListMirrorsViewportOnlyWithoutExplicitFilters(t *testing.T) {
	f := setupSession(t, uuid.New())

	// Central Lisbon window, excluding Belem (tower, cafe).
	f.session.SetBounds(types.Bounds{SouthLat: 38.70, WestLng: -9.17, NorthLat: 38.75, EastLng: -9.10})

	assert.Equal(t, []string{"museum", "park"}, visibleIDs(f.session.VisibleSet()),
		"without filters the list mirrors the viewport")

	// An explicit filter widens the list to every match, on-screen or not.
	f.session.SetCategories([]types.Category{types.CategoryLandmark, types.CategoryMuseum})
	assert.Equal(t, []string{"tower", "museum"}, visibleIDs(f.session.VisibleSet()),
		"explicit filters surface off-screen matches")

	// Clearing the filter goes back to mirroring the viewport.
	f.session.SetCategories(nil)
	assert.Equal(t, []string{"museum", "park"}, visibleIDs(f.session.VisibleSet()))
}

func TestSession_FitOnSetChangeNotOnReorder(t *testing.T) {
	f := setupSession(t, uuid.New())
	ctx := context.Background()

	f.resolver.On("ResolveSearch", mock.Anything, "quiet green spots").Return([]string{"park", "cafe"}, nil).Once()
	require.NoError(t, f.session.RunSemanticSearch(ctx, "quiet green spots"))

	_, _, pending := f.session.Viewport().PendingFit()
	assert.True(t, pending, "narrowing the set requests a fit")
	f.session.Viewport().AckFit()

	// Same ids, different order: a re-rank, not a new result set.
	f.resolver.On("ResolveSearch", mock.Anything, "cafes near parks").Return([]string{"cafe", "park"}, nil).Once()
	require.NoError(t, f.session.RunSemanticSearch(ctx, "cafes near parks"))

	assert.Equal(t, []string{"cafe", "park"}, visibleIDs(f.session.FilteredSet()),
		"resolver order is preserved")
	_, _, pending = f.session.Viewport().PendingFit()
	assert.False(t, pending, "a reorder must not re-fire the fit")
	f.resolver.AssertExpectations(t)
}

func TestSession_EmptySearchResultKeepsView(t *testing.T) {
	f := setupSession(t, uuid.New())

	f.session.RunLiteralSearch("no such place anywhere")

	assert.Empty(t, f.session.VisibleSet())
	_, _, pending := f.session.Viewport().PendingFit()
	assert.False(t, pending, "an empty result keeps the current view")
}

func TestSession_SearchAndFiltersAreMutuallyExclusive(t *testing.T) {
	f := setupSession(t, uuid.New())

	t.Run("search resets explicit filters", func(t *testing.T) {
		f.session.SetCategories([]types.Category{types.CategoryPark})
		f.session.RunLiteralSearch("tile")

		filters := f.session.Filters()
		assert.Empty(t, filters.Categories)
		assert.Equal(t, types.SearchModeLiteral, filters.Search)
		assert.Equal(t, []string{"museum"}, visibleIDs(f.session.FilteredSet()))
	})

	t.Run("setting a filter clears the search", func(t *testing.T) {
		f.session.RunLiteralSearch("tile")
		f.session.SetCategories([]types.Category{types.CategoryPark})

		filters := f.session.Filters()
		assert.Equal(t, types.SearchModeNone, filters.Search)
		assert.Empty(t, filters.SearchTerm)
		assert.Equal(t, []string{"park"}, visibleIDs(f.session.FilteredSet()))
	})

	t.Run("clearing the search restores the full catalog", func(t *testing.T) {
		f.session.SetCategories(nil)
		f.session.RunLiteralSearch("tile")
		f.session.ClearSearch()

		assert.Len(t, f.session.FilteredSet(), 4)
	})
}

func TestSession_SetFiltersRecomputesOnce(t *testing.T) {
	f := setupSession(t, uuid.New())
	f.session.RunLiteralSearch("tile")

	recomputes := 0
	unsubscribe := f.session.Subscribe(func(ev Event) {
		if ev.Kind == EventVisibleSetChanged {
			recomputes++
		}
	})
	defer unsubscribe()

	f.session.SetFilters([]types.Category{types.CategoryPark}, false, nil)

	assert.Equal(t, 1, recomputes, "one filter change must re-derive the visible set exactly once")

	filters := f.session.Filters()
	assert.Equal(t, types.SearchModeNone, filters.Search, "setting filters clears the search")
	assert.Equal(t, []types.Category{types.CategoryPark}, filters.Categories)
	assert.False(t, filters.FavoritesOnly)
	assert.Empty(t, filters.Days)
	assert.Equal(t, []string{"park"}, visibleIDs(f.session.FilteredSet()))
}

func TestSession_SemanticResolverFailureLeavesStateUntouched(t *testing.T) {
	f := setupSession(t, uuid.New())
	ctx := context.Background()

	f.session.SetCategories([]types.Category{types.CategoryPark})
	before := f.session.Filters()

	f.resolver.On("ResolveSearch", mock.Anything, "broken").Return(nil, errors.New("model timeout")).Once()
	err := f.session.RunSemanticSearch(ctx, "broken")

	require.Error(t, err)
	assert.Equal(t, before, f.session.Filters(), "failed search must not clobber the active filters")
	assert.Equal(t, []string{"park"}, visibleIDs(f.session.FilteredSet()))
}

func TestSession_FavoritesOnlyReactsToToggles(t *testing.T) {
	f := setupSession(t, uuid.New())
	ctx := context.Background()

	f.session.SetFavoritesOnly(true)
	assert.Empty(t, f.session.FilteredSet())

	f.favorites.On("ToggleFavorite", mock.Anything, f.userID, "park").Return(true, nil).Once()
	require.NoError(t, f.session.ToggleFavorite(ctx, "park"))

	assert.Equal(t, []string{"park"}, visibleIDs(f.session.FilteredSet()),
		"a toggle must immediately show up under the favourites-only filter")

	f.favorites.On("ToggleFavorite", mock.Anything, f.userID, "park").Return(false, nil).Once()
	require.NoError(t, f.session.ToggleFavorite(ctx, "park"))

	assert.Empty(t, f.session.FilteredSet())
	f.favorites.AssertExpectations(t)
}

func TestSession_OpenItinerary(t *testing.T) {
	t.Run("unauthenticated session is refused", func(t *testing.T) {
		f := setupSession(t, uuid.Nil)
		_, err := f.session.OpenItinerary(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrLoginRequired)
	})

	t.Run("edits flow through editor and day filter", func(t *testing.T) {
		f := setupSession(t, uuid.New())
		ctx := context.Background()
		itineraryID := uuid.New()

		stored := &types.Itinerary{
			ID:     itineraryID,
			UserID: f.userID,
			Name:   "Lisbon weekend",
			Days:   []types.ItineraryDay{{DayNumber: 1, LocationIDs: []string{"tower"}}},
		}
		f.itineraries.On("GetItinerary", mock.Anything, f.userID, itineraryID).Return(stored, nil).Once()
		f.itineraries.On("ReplaceDays", mock.Anything, f.userID, itineraryID, mock.Anything).Return(nil).Maybe()

		opened, err := f.session.OpenItinerary(ctx, itineraryID)
		require.NoError(t, err)
		assert.Equal(t, "Lisbon weekend", opened.Name)
		assert.Equal(t, types.SyncStatusClean, f.session.SyncStatus())

		// Unknown ids are refused before touching the editor.
		assert.ErrorIs(t, f.session.AddLocationToDay(1, "atlantis"), ErrUnknownLocation)

		require.NoError(t, f.session.AddLocationToDay(1, "museum"))
		assert.Equal(t, types.SyncStatusDirty, f.session.SyncStatus())

		// The day filter reflects live edits.
		f.session.SetDayFilter([]int{1})
		assert.ElementsMatch(t, []string{"tower", "museum"}, visibleIDs(f.session.FilteredSet()))

		require.NoError(t, f.session.RemoveLocationFromDay(1, "tower"))
		assert.Equal(t, []string{"museum"}, visibleIDs(f.session.FilteredSet()))

		f.session.CloseItinerary()
		_, open := f.session.Itinerary()
		assert.False(t, open)
		assert.Len(t, f.session.FilteredSet(), 4, "closing drops the day filter")
	})

	t.Run("day edits without an open itinerary", func(t *testing.T) {
		f := setupSession(t, uuid.New())

		_, err := f.session.AddDay()
		assert.ErrorIs(t, err, ErrNoItinerary)
		assert.ErrorIs(t, f.session.RemoveDay(1), ErrNoItinerary)
		assert.ErrorIs(t, f.session.AddLocationToDay(1, "tower"), ErrNoItinerary)
	})
}

func TestSession_DebouncedSaveAfterEdits(t *testing.T) {
	f := setupSession(t, uuid.New())
	ctx := context.Background()
	itineraryID := uuid.New()

	stored := &types.Itinerary{ID: itineraryID, UserID: f.userID, Days: []types.ItineraryDay{{DayNumber: 1, LocationIDs: []string{}}}}
	f.itineraries.On("GetItinerary", mock.Anything, f.userID, itineraryID).Return(stored, nil).Once()

	saved := make(chan []types.ItineraryDay, 4)
	f.itineraries.On("ReplaceDays", mock.Anything, f.userID, itineraryID, mock.Anything).
		Run(func(args mock.Arguments) {
			saved <- args.Get(3).([]types.ItineraryDay)
		}).Return(nil)

	_, err := f.session.OpenItinerary(ctx, itineraryID)
	require.NoError(t, err)

	require.NoError(t, f.session.AddLocationToDay(1, "tower"))
	require.NoError(t, f.session.AddLocationToDay(1, "museum"))

	select {
	case days := <-saved:
		assert.Equal(t, []string{"tower", "museum"}, days[0].LocationIDs,
			"the debounced save carries the final state of the burst")
	case <-time.After(3 * time.Second):
		t.Fatal("expected a save after the quiescence window")
	}

	select {
	case <-saved:
		t.Fatal("burst must collapse into one save")
	case <-time.After(3 * testDebounce):
	}
	assert.Equal(t, types.SyncStatusClean, f.session.SyncStatus())
}

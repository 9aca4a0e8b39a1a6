package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-trip-explorer/internal/planner"
)

// SessionManager keeps one live exploration session per user. Sessions
// expire after a TTL of inactivity; eviction tears the session down so a
// pending itinerary save still flushes.
type SessionManager struct {
	logger       *slog.Logger
	sessions     *cache.Cache
	catalog      planner.CatalogLoader
	favorites    planner.FavoritesBackend
	itineraries  planner.ItineraryBackend
	resolver     planner.SearchResolver
	saveDebounce time.Duration
	saveRetries  int
}

type SessionManagerConfig struct {
	Catalog      planner.CatalogLoader
	Favorites    planner.FavoritesBackend
	Itineraries  planner.ItineraryBackend
	Resolver     planner.SearchResolver
	SaveDebounce time.Duration
	SaveRetries  int
	SessionTTL   time.Duration
}

func NewSessionManager(cfg SessionManagerConfig, logger *slog.Logger) *SessionManager {
	sessions := cache.New(cfg.SessionTTL, cfg.SessionTTL/2)
	sessions.OnEvicted(func(key string, value interface{}) {
		if s, ok := value.(*planner.Session); ok {
			logger.Info("Planner session expired", slog.String("userID", key))
			s.Close()
		}
	})
	return &SessionManager{
		logger:       logger,
		sessions:     sessions,
		catalog:      cfg.Catalog,
		favorites:    cfg.Favorites,
		itineraries:  cfg.Itineraries,
		resolver:     cfg.Resolver,
		saveDebounce: cfg.SaveDebounce,
		saveRetries:  cfg.SaveRetries,
	}
}

// Open creates a fresh session for the user, replacing any existing one.
func (m *SessionManager) Open(ctx context.Context, userID uuid.UUID) (*planner.Session, error) {
	m.Close(userID)

	session, err := planner.NewSession(ctx, planner.SessionParams{
		UserID:       userID,
		Catalog:      m.catalog,
		Favorites:    m.favorites,
		Itineraries:  m.itineraries,
		Resolver:     m.resolver,
		SaveDebounce: m.saveDebounce,
		SaveRetries:  m.saveRetries,
		Logger:       m.logger.With(slog.String("userID", userID.String())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open planner session: %w", err)
	}

	m.sessions.SetDefault(userID.String(), session)
	return session, nil
}

// Get returns the user's live session, refreshing its TTL.
func (m *SessionManager) Get(userID uuid.UUID) (*planner.Session, bool) {
	value, found := m.sessions.Get(userID.String())
	if !found {
		return nil, false
	}
	session := value.(*planner.Session)
	// Touch: sliding expiration rather than absolute.
	m.sessions.SetDefault(userID.String(), session)
	return session, true
}

// Close tears down the user's session if one exists. A pending dirty
// itinerary still flushes in the background. Delete fires the eviction
// hook, which closes the session; Session.Close tolerates repeats.
func (m *SessionManager) Close(userID uuid.UUID) {
	m.sessions.Delete(userID.String())
}

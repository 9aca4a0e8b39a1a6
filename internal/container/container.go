package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-trip-explorer/app/db"
	"github.com/FACorreiaa/go-trip-explorer/config"
	"github.com/FACorreiaa/go-trip-explorer/internal/api/catalog"
	"github.com/FACorreiaa/go-trip-explorer/internal/api/favorites"
	"github.com/FACorreiaa/go-trip-explorer/internal/api/itinerary"
	plannerAPI "github.com/FACorreiaa/go-trip-explorer/internal/api/planner"
	"github.com/FACorreiaa/go-trip-explorer/internal/api/semantic"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	CatalogHandler   *catalog.Handler
	FavoritesHandler *favorites.Handler
	ItineraryHandler *itinerary.Handler
	PlannerHandler   *plannerAPI.Handler
	SessionManager   *plannerAPI.SessionManager
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	catalogRepo := catalog.NewRepository(pool, logger)
	catalogService := catalog.NewServiceImpl(catalogRepo, logger)
	catalogHandler := catalog.NewHandler(catalogService, logger)

	favoritesRepo := favorites.NewRepository(pool, logger)
	favoritesService := favorites.NewServiceImpl(favoritesRepo, logger)
	favoritesHandler := favorites.NewHandler(favoritesService, logger)

	itineraryRepo := itinerary.NewRepository(pool, logger)
	itineraryService := itinerary.NewServiceImpl(itineraryRepo, logger)
	itineraryHandler := itinerary.NewHandler(itineraryService, logger)

	aiClient, err := semantic.NewAIClient(ctx, cfg.Gemini.Model)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", slog.Any("error", err))
		return nil, err
	}
	semanticService := semantic.NewServiceImpl(catalogService, aiClient, logger)

	sessionManager := plannerAPI.NewSessionManager(plannerAPI.SessionManagerConfig{
		Catalog:      catalogService,
		Favorites:    favoritesService,
		Itineraries:  itineraryService,
		Resolver:     semanticService,
		SaveDebounce: cfg.Planner.SaveDebounce,
		SaveRetries:  cfg.Planner.SaveRetries,
		SessionTTL:   cfg.Planner.SessionTTL,
	}, logger)
	plannerHandler := plannerAPI.NewHandler(sessionManager, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		CatalogHandler:   catalogHandler,
		FavoritesHandler: favoritesHandler,
		ItineraryHandler: itineraryHandler,
		PlannerHandler:   plannerHandler,
		SessionManager:   sessionManager,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

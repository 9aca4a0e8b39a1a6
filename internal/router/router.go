package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-trip-explorer/internal/api/catalog"
	"github.com/FACorreiaa/go-trip-explorer/internal/api/favorites"
	"github.com/FACorreiaa/go-trip-explorer/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-explorer/internal/api/planner"
)

// Config contains dependencies needed for the router setup
type Config struct {
	CatalogHandler         *catalog.Handler
	FavoritesHandler       *favorites.Handler
	ItineraryHandler       *itinerary.Handler
	PlannerHandler         *planner.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
	OptionalAuthMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// --- Public catalog routes ---
		r.Group(func(r chi.Router) {
			r.Get("/locations", cfg.CatalogHandler.GetLocations)
			r.Get("/locations/search", cfg.CatalogHandler.SearchLocations)
			r.Get("/categories", cfg.CatalogHandler.GetCategories)
		})

		// Anonymous callers get an empty favourites list rather than a 401.
		r.Group(func(r chi.Router) {
			r.Use(cfg.OptionalAuthMiddleware)
			r.Get("/favourites", cfg.FavoritesHandler.GetFavorites)
		})

		// --- Protected routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/favourites/toggle", cfg.FavoritesHandler.ToggleFavorite)

			r.Route("/itineraries", func(r chi.Router) {
				r.Post("/", cfg.ItineraryHandler.CreateItinerary)
				r.Get("/", cfg.ItineraryHandler.GetUserItineraries)
				r.Get("/{itineraryID}", cfg.ItineraryHandler.GetItinerary)
				r.Put("/{itineraryID}/days", cfg.ItineraryHandler.ReplaceDays)
			})

			r.Route("/planner", func(r chi.Router) {
				r.Post("/session", cfg.PlannerHandler.OpenSession)
				r.Delete("/session", cfg.PlannerHandler.CloseSession)
				r.Get("/state", cfg.PlannerHandler.GetState)
				r.Get("/events", cfg.PlannerHandler.StreamEvents)
				r.Post("/viewport", cfg.PlannerHandler.SetViewport)
				r.Post("/viewport/ack-fit", cfg.PlannerHandler.AckFit)
				r.Put("/filters", cfg.PlannerHandler.SetFilters)
				r.Post("/search", cfg.PlannerHandler.RunSearch)
				r.Delete("/search", cfg.PlannerHandler.ClearSearch)
				r.Post("/favourites/{locationID}/toggle", cfg.PlannerHandler.ToggleFavorite)
				r.Route("/days", func(r chi.Router) {
					r.Post("/", cfg.PlannerHandler.AddDay)
					r.Delete("/{dayNumber}", cfg.PlannerHandler.RemoveDay)
					r.Post("/{dayNumber}/locations", cfg.PlannerHandler.AddLocationToDay)
					r.Delete("/{dayNumber}/locations/{locationID}", cfg.PlannerHandler.RemoveLocationFromDay)
				})
			})
		})
	})

	return r
}

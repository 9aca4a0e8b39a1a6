package tracer

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ItinerarySavesTotal      metric.Int64Counter
	ItinerarySaveErrorsTotal metric.Int64Counter
	ItinerarySaveDuration    metric.Float64Histogram
	FavoriteTogglesTotal     metric.Int64Counter
	VisibleSetRecomputes     metric.Int64Counter
	SemanticResolutionsTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments only once,
// using the globally configured MeterProvider.
func InitAppMetrics() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("TripExplorer")
		var err error
		m := &AppMetrics{}

		m.ItinerarySavesTotal, err = meter.Int64Counter(
			"itinerary_saves_total",
			metric.WithDescription("Total number of itinerary save attempts"),
			metric.WithUnit("{save}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_saves_total: %v", err)
		}

		m.ItinerarySaveErrorsTotal, err = meter.Int64Counter(
			"itinerary_save_errors_total",
			metric.WithDescription("Total number of itinerary saves that exhausted their retries"),
			metric.WithUnit("{save}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_save_errors_total: %v", err)
		}

		m.ItinerarySaveDuration, err = meter.Float64Histogram(
			"itinerary_save_duration_seconds",
			metric.WithDescription("Duration of itinerary save calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_save_duration_seconds: %v", err)
		}

		m.FavoriteTogglesTotal, err = meter.Int64Counter(
			"favorite_toggles_total",
			metric.WithDescription("Total number of favourite toggle attempts"),
			metric.WithUnit("{toggle}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create favorite_toggles_total: %v", err)
		}

		m.VisibleSetRecomputes, err = meter.Int64Counter(
			"visible_set_recomputes_total",
			metric.WithDescription("Total number of visible-set recomputations"),
			metric.WithUnit("{recompute}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create visible_set_recomputes_total: %v", err)
		}

		m.SemanticResolutionsTotal, err = meter.Int64Counter(
			"semantic_resolutions_total",
			metric.WithDescription("Total number of semantic search resolutions"),
			metric.WithUnit("{resolution}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create semantic_resolutions_total: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}

// Get returns the initialized metric instruments, initializing them if needed.
func Get() *AppMetrics {
	return InitAppMetrics()
}

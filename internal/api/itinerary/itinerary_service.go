package itinerary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for itinerary operations.
// It also satisfies planner.ItineraryBackend.
type Service interface {
	CreateItinerary(ctx context.Context, userID uuid.UUID, req types.CreateItineraryRequest) (*types.Itinerary, error)
	GetItinerary(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error)
	GetUserItineraries(ctx context.Context, userID uuid.UUID) ([]types.Itinerary, error)
	ReplaceDays(ctx context.Context, userID, itineraryID uuid.UUID, days []types.ItineraryDay) error
}

type ServiceImpl struct {
	logger     *slog.Logger
	repository Repository
}

func NewServiceImpl(repository Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repository: repository,
	}
}

// CreateItinerary creates an itinerary for the user. A missing day list
// defaults to one empty day so a fresh plan is immediately editable.
func (s *ServiceImpl) CreateItinerary(ctx context.Context, userID uuid.UUID, req types.CreateItineraryRequest) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "CreateItinerary", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	days := req.Days
	if len(days) == 0 {
		days = []types.ItineraryDay{{DayNumber: 1, LocationIDs: []string{}}}
	}
	if err := validateDays(days); err != nil {
		return nil, err
	}

	itinerary := types.Itinerary{
		ID:     uuid.New(),
		UserID: userID,
		Name:   req.Name,
		Days:   days,
	}
	if err := s.repository.CreateItinerary(ctx, itinerary); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to create itinerary", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create itinerary: %w", err)
	}

	span.SetStatus(codes.Ok, "Itinerary created")
	return &itinerary, nil
}

// GetItinerary fetches an itinerary owned by the user.
func (s *ServiceImpl) GetItinerary(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error) {
	itinerary, err := s.repository.GetItinerary(ctx, userID, itineraryID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to get itinerary", slog.Any("error", err))
		return nil, err
	}
	return itinerary, nil
}

// GetUserItineraries lists the user's itineraries.
func (s *ServiceImpl) GetUserItineraries(ctx context.Context, userID uuid.UUID) ([]types.Itinerary, error) {
	itineraries, err := s.repository.GetUserItineraries(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to list itineraries", slog.Any("error", err))
		return nil, err
	}
	return itineraries, nil
}

// ReplaceDays validates and atomically replaces the day/location structure.
func (s *ServiceImpl) ReplaceDays(ctx context.Context, userID, itineraryID uuid.UUID, days []types.ItineraryDay) error {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ReplaceDays", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("itinerary.id", itineraryID.String()),
		attribute.Int("days.count", len(days)),
	))
	defer span.End()

	if err := validateDays(days); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.repository.ReplaceDays(ctx, userID, itineraryID, days); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to replace itinerary days", slog.Any("error", err))
		span.RecordError(err)
		return err
	}

	span.SetStatus(codes.Ok, "Itinerary days replaced")
	return nil
}

// validateDays enforces the store-side half of the editor's invariants:
// contiguous day numbers 1..N and no duplicate location within a day.
func validateDays(days []types.ItineraryDay) error {
	if len(days) == 0 {
		return fmt.Errorf("itinerary must have at least one day")
	}
	seen := make(map[int]bool, len(days))
	for _, day := range days {
		if day.DayNumber < 1 || day.DayNumber > len(days) {
			return fmt.Errorf("day number %d outside 1..%d", day.DayNumber, len(days))
		}
		if seen[day.DayNumber] {
			return fmt.Errorf("duplicate day number %d", day.DayNumber)
		}
		seen[day.DayNumber] = true

		ids := make(map[string]bool, len(day.LocationIDs))
		for _, id := range day.LocationIDs {
			if ids[id] {
				return fmt.Errorf("duplicate location %q in day %d", id, day.DayNumber)
			}
			ids[id] = true
		}
	}
	return nil
}

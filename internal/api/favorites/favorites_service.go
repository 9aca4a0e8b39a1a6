package favorites

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for favourites. It also
// satisfies planner.FavoritesBackend.
type Service interface {
	GetFavorites(ctx context.Context, userID uuid.UUID) ([]string, error)
	ToggleFavorite(ctx context.Context, userID uuid.UUID, locationID string) (bool, error)
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

// GetFavorites returns the user's favourited location ids. An
// unauthenticated user gets an empty list, never an error.
func (s *ServiceImpl) GetFavorites(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if userID == uuid.Nil {
		return []string{}, nil
	}
	ids, err := s.repository.GetFavoriteIDs(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get favourites", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get favourites: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// ToggleFavorite flips membership and returns the new state.
func (s *ServiceImpl) ToggleFavorite(ctx context.Context, userID uuid.UUID, locationID string) (bool, error) {
	ctx, span := otel.Tracer("FavoritesService").Start(ctx, "ToggleFavorite", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("location.id", locationID),
	))
	defer span.End()

	favorited, err := s.repository.ToggleFavorite(ctx, userID, locationID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to toggle favourite", slog.Any("error", err))
		span.RecordError(err)
		return false, fmt.Errorf("failed to toggle favourite: %w", err)
	}

	span.SetStatus(codes.Ok, "Favourite toggled")
	return favorited, nil
}

package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/go-trip-explorer/internal/api"
	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the interface for itinerary persistence. ReplaceDays
// is the store-side half of the save protocol: one atomic swap of the
// day/location structure, rejected for non-owners.
type Repository interface {
	CreateItinerary(ctx context.Context, itinerary types.Itinerary) error
	GetItinerary(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error)
	GetUserItineraries(ctx context.Context, userID uuid.UUID) ([]types.Itinerary, error)
	ReplaceDays(ctx context.Context, userID, itineraryID uuid.UUID, days []types.ItineraryDay) error
}

// DB is the subset of pgxpool.Pool the repository needs; satisfied by the
// real pool and by pgxmock in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool DB
}

func NewRepository(pgxpool DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

// CreateItinerary inserts the itinerary and its initial day structure.
func (r *RepositoryImpl) CreateItinerary(ctx context.Context, itinerary types.Itinerary) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin create transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO itineraries (id, user_id, name)
        VALUES ($1, $2, $3)
    `, itinerary.ID, itinerary.UserID, itinerary.Name)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to insert itinerary: %w", err)
	}

	if err = insertDays(ctx, tx, itinerary.ID, itinerary.Days); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit create transaction: %w", err)
	}
	return nil
}

// GetItinerary fetches the itinerary with its ordered day structure.
// Returns api.ErrNotFound for unknown ids and api.ErrForbidden when the
// itinerary belongs to another user.
func (r *RepositoryImpl) GetItinerary(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error) {
	var itinerary types.Itinerary
	var ownerID uuid.UUID
	err := r.pgpool.QueryRow(ctx, `
        SELECT id, user_id, name, created_at, updated_at
        FROM itineraries
        WHERE id = $1
    `, itineraryID).Scan(&itinerary.ID, &ownerID, &itinerary.Name, &itinerary.CreatedAt, &itinerary.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query itinerary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query itinerary: %w", err)
	}
	if ownerID != userID {
		return nil, api.ErrForbidden
	}
	itinerary.UserID = ownerID

	// Days are driven from itinerary_days so a day with no locations is
	// still reconstructed; its location_id comes back NULL from the join.
	rows, err := r.pgpool.Query(ctx, `
        SELECT d.day_number, l.location_id
        FROM itinerary_days d
        LEFT JOIN itinerary_day_locations l
            ON l.itinerary_id = d.itinerary_id AND l.day_number = d.day_number
        WHERE d.itinerary_id = $1
        ORDER BY d.day_number, l.position
    `, itineraryID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query itinerary days", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query itinerary days: %w", err)
	}
	defer rows.Close()

	byDay := make(map[int]*types.ItineraryDay)
	var order []int
	for rows.Next() {
		var dayNumber int
		var locationID *string
		if err := rows.Scan(&dayNumber, &locationID); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary day row: %w", err)
		}
		day, ok := byDay[dayNumber]
		if !ok {
			day = &types.ItineraryDay{DayNumber: dayNumber, LocationIDs: []string{}}
			byDay[dayNumber] = day
			order = append(order, dayNumber)
		}
		if locationID != nil {
			day.LocationIDs = append(day.LocationIDs, *locationID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itinerary day rows: %w", err)
	}

	for _, n := range order {
		itinerary.Days = append(itinerary.Days, *byDay[n])
	}
	return &itinerary, nil
}

// GetUserItineraries lists the user's itineraries without day detail.
func (r *RepositoryImpl) GetUserItineraries(ctx context.Context, userID uuid.UUID) ([]types.Itinerary, error) {
	rows, err := r.pgpool.Query(ctx, `
        SELECT id, user_id, name, created_at, updated_at
        FROM itineraries
        WHERE user_id = $1
        ORDER BY updated_at DESC
    `, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query itineraries", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query itineraries: %w", err)
	}
	defer rows.Close()

	var itineraries []types.Itinerary
	for rows.Next() {
		var it types.Itinerary
		if err := rows.Scan(&it.ID, &it.UserID, &it.Name, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary row: %w", err)
		}
		itineraries = append(itineraries, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itinerary rows: %w", err)
	}
	return itineraries, nil
}

// ReplaceDays atomically swaps the day/location structure for the
// itinerary. The ownership check runs inside the same transaction as the
// swap, so a non-owner can never partially overwrite someone else's plan.
func (r *RepositoryImpl) ReplaceDays(ctx context.Context, userID, itineraryID uuid.UUID, days []types.ItineraryDay) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin replace transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ownerID uuid.UUID
	err = tx.QueryRow(ctx, `
        SELECT user_id FROM itineraries WHERE id = $1 FOR UPDATE
    `, itineraryID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return api.ErrNotFound
		}
		return fmt.Errorf("failed to lock itinerary: %w", err)
	}
	if ownerID != userID {
		return api.ErrForbidden
	}

	// Deleting the day rows cascades to their location rows.
	_, err = tx.Exec(ctx, `
        DELETE FROM itinerary_days WHERE itinerary_id = $1
    `, itineraryID)
	if err != nil {
		return fmt.Errorf("failed to clear itinerary days: %w", err)
	}

	if err = insertDays(ctx, tx, itineraryID, days); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
        UPDATE itineraries SET updated_at = NOW() WHERE id = $1
    `, itineraryID)
	if err != nil {
		return fmt.Errorf("failed to touch itinerary: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit replace transaction: %w", err)
	}
	return nil
}

// insertDays writes one itinerary_days row per day and one
// itinerary_day_locations row per entry. The day row is written even when
// the day is empty, so empty days survive the round trip.
func insertDays(ctx context.Context, tx pgx.Tx, itineraryID uuid.UUID, days []types.ItineraryDay) error {
	for _, day := range days {
		_, err := tx.Exec(ctx, `
            INSERT INTO itinerary_days (itinerary_id, day_number)
            VALUES ($1, $2)
        `, itineraryID, day.DayNumber)
		if err != nil {
			return fmt.Errorf("failed to insert itinerary day: %w", err)
		}
		for position, locationID := range day.LocationIDs {
			_, err := tx.Exec(ctx, `
                INSERT INTO itinerary_day_locations (itinerary_id, day_number, location_id, position)
                VALUES ($1, $2, $3, $4)
            `, itineraryID, day.DayNumber, locationID, position)
			if err != nil {
				return fmt.Errorf("failed to insert itinerary day location: %w", err)
			}
		}
	}
	return nil
}

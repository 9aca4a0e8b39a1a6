package favorites

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the interface for favourite membership persistence.
type Repository interface {
	GetFavoriteIDs(ctx context.Context, userID uuid.UUID) ([]string, error)
	// ToggleFavorite flips membership and returns the new state.
	ToggleFavorite(ctx context.Context, userID uuid.UUID, locationID string) (bool, error)
}

// DB is the subset of pgxpool.Pool the repository needs; satisfied by the
// real pool and by pgxmock in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
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

// GetFavoriteIDs returns the user's favourited location ids.
func (r *RepositoryImpl) GetFavoriteIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
        SELECT location_id FROM user_favorite_locations
        WHERE user_id = $1
        ORDER BY created_at
    `
	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query favourites", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query favourites: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favourite row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favourite rows: %w", err)
	}
	return ids, nil
}

// ToggleFavorite removes the membership row if present, inserts it
// otherwise, and returns the resulting state. The delete-first shape makes
// the flip atomic in a single transaction.
func (r *RepositoryImpl) ToggleFavorite(ctx context.Context, userID uuid.UUID, locationID string) (bool, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin toggle transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        DELETE FROM user_favorite_locations
        WHERE user_id = $1 AND location_id = $2
    `, userID, locationID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete favourite", slog.Any("error", err))
		return false, fmt.Errorf("failed to delete favourite: %w", err)
	}

	favorited := false
	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx, `
            INSERT INTO user_favorite_locations (user_id, location_id)
            VALUES ($1, $2)
        `, userID, locationID)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to insert favourite", slog.Any("error", err))
			return false, fmt.Errorf("failed to insert favourite: %w", err)
		}
		favorited = true
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit toggle transaction: %w", err)
	}
	return favorited, nil
}

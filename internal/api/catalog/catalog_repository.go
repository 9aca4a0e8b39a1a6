package catalog

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the interface for location catalog reads. The catalog
// is read-only for a session; there are no mutation operations.
type Repository interface {
	GetAllLocations(ctx context.Context) ([]types.Location, error)
	SearchLocations(ctx context.Context, term string, category types.Category) ([]types.Location, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewRepository(pgxpool *pgxpool.Pool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

const locationColumns = "id, name, description, category, latitude, longitude, images"

// GetAllLocations returns the full catalog in stable insertion order.
func (r *RepositoryImpl) GetAllLocations(ctx context.Context) ([]types.Location, error) {
	query := fmt.Sprintf(`SELECT %s FROM locations ORDER BY created_at, id`, locationColumns)

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query locations", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	return scanLocations(rows.Next, rows.Scan, rows.Err)
}

// SearchLocations runs a server-side filtered catalog query. The predicate
// set is dynamic, so the statement is built with squirrel.
func (r *RepositoryImpl) SearchLocations(ctx context.Context, term string, category types.Category) ([]types.Location, error) {
	builder := sq.Select(locationColumns).
		From("locations").
		OrderBy("created_at", "id").
		PlaceholderFormat(sq.Dollar)

	if term != "" {
		like := "%" + term + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"name": like},
			sq.ILike{"description": like},
			sq.ILike{"category": like},
		})
	}
	if category != "" {
		builder = builder.Where(sq.Eq{"category": string(category)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build location search query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to search locations", slog.Any("error", err))
		return nil, fmt.Errorf("failed to search locations: %w", err)
	}
	defer rows.Close()

	return scanLocations(rows.Next, rows.Scan, rows.Err)
}

func scanLocations(next func() bool, scan func(...any) error, rowsErr func() error) ([]types.Location, error) {
	var locations []types.Location
	for next() {
		var loc types.Location
		if err := scan(&loc.ID, &loc.Name, &loc.Description, &loc.Category, &loc.Latitude, &loc.Longitude, &loc.Images); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rowsErr(); err != nil {
		return nil, fmt.Errorf("error iterating location rows: %w", err)
	}
	return locations, nil
}

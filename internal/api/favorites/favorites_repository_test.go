package favorites

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepositoryTest(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRepository(mockPool, logger), mockPool
}

func TestRepositoryImpl_GetFavoriteIDs(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("returns ids in creation order", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)

		rows := pgxmock.NewRows([]string{"location_id"}).
			AddRow("tower").
			AddRow("park")
		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT location_id FROM user_favorite_locations")).
			WithArgs(userID).
			WillReturnRows(rows)

		ids, err := repo.GetFavoriteIDs(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []string{"tower", "park"}, ids)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("no favourites", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)

		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT location_id FROM user_favorite_locations")).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"location_id"}))

		ids, err := repo.GetFavoriteIDs(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)

		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT location_id FROM user_favorite_locations")).
			WithArgs(userID).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetFavoriteIDs(ctx, userID)
		require.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRepositoryImpl_ToggleFavorite(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("toggling on inserts after an empty delete", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM user_favorite_locations")).
			WithArgs(userID, "tower").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO user_favorite_locations")).
			WithArgs(userID, "tower").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback()

		favorited, err := repo.ToggleFavorite(ctx, userID, "tower")
		require.NoError(t, err)
		assert.True(t, favorited)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("toggling off stops at the delete", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM user_favorite_locations")).
			WithArgs(userID, "tower").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback()

		favorited, err := repo.ToggleFavorite(ctx, userID, "tower")
		require.NoError(t, err)
		assert.False(t, favorited)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("insert failure rolls the transaction back", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM user_favorite_locations")).
			WithArgs(userID, "tower").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO user_favorite_locations")).
			WithArgs(userID, "tower").
			WillReturnError(errors.New("unique violation"))
		mockPool.ExpectRollback()

		_, err := repo.ToggleFavorite(ctx, userID, "tower")
		require.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

package itinerary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-explorer/internal/api"
	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateItinerary(ctx context.Context, itinerary types.Itinerary) error {
	args := m.Called(ctx, itinerary)
	return args.Error(0)
}

func (m *MockRepository) GetItinerary(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error) {
	args := m.Called(ctx, userID, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockRepository) GetUserItineraries(ctx context.Context, userID uuid.UUID) ([]types.Itinerary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Itinerary), args.Error(1)
}

func (m *MockRepository) ReplaceDays(ctx context.Context, userID, itineraryID uuid.UUID, days []types.ItineraryDay) error {
	args := m.Called(ctx, userID, itineraryID, days)
	return args.Error(0)
}

func setupItineraryServiceTest() (*ServiceImpl, *MockRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockRepository)
	return NewServiceImpl(mockRepo, logger), mockRepo
}

func TestServiceImpl_CreateItinerary(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("no days given defaults to one empty day", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()
		mockRepo.On("CreateItinerary", mock.Anything, mock.MatchedBy(func(it types.Itinerary) bool {
			return len(it.Days) == 1 && it.Days[0].DayNumber == 1 && len(it.Days[0].LocationIDs) == 0
		})).Return(nil).Once()

		itinerary, err := service.CreateItinerary(ctx, userID, types.CreateItineraryRequest{Name: "Lisbon weekend"})
		require.NoError(t, err)
		assert.Equal(t, "Lisbon weekend", itinerary.Name)
		assert.Equal(t, userID, itinerary.UserID)
		assert.NotEqual(t, uuid.Nil, itinerary.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid day numbering is rejected before the repository", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()

		_, err := service.CreateItinerary(ctx, userID, types.CreateItineraryRequest{
			Name: "Broken",
			Days: []types.ItineraryDay{{DayNumber: 1}, {DayNumber: 3}},
		})
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "CreateItinerary")
	})

	t.Run("repository error", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()
		mockRepo.On("CreateItinerary", mock.Anything, mock.Anything).Return(errors.New("db error")).Once()

		_, err := service.CreateItinerary(ctx, userID, types.CreateItineraryRequest{Name: "Lisbon"})
		require.Error(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestServiceImpl_ReplaceDays(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	itineraryID := uuid.New()

	validDays := []types.ItineraryDay{
		{DayNumber: 1, LocationIDs: []string{"tower"}},
		{DayNumber: 2, LocationIDs: []string{"park", "cafe"}},
	}

	t.Run("valid structure passes through", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()
		mockRepo.On("ReplaceDays", mock.Anything, userID, itineraryID, validDays).Return(nil).Once()

		require.NoError(t, service.ReplaceDays(ctx, userID, itineraryID, validDays))
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects empty day list", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()

		require.Error(t, service.ReplaceDays(ctx, userID, itineraryID, nil))
		mockRepo.AssertNotCalled(t, "ReplaceDays")
	})

	t.Run("rejects gapped day numbers", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()

		err := service.ReplaceDays(ctx, userID, itineraryID, []types.ItineraryDay{
			{DayNumber: 1}, {DayNumber: 2}, {DayNumber: 4},
		})
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "ReplaceDays")
	})

	t.Run("rejects duplicate day numbers", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()

		err := service.ReplaceDays(ctx, userID, itineraryID, []types.ItineraryDay{
			{DayNumber: 1}, {DayNumber: 1},
		})
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "ReplaceDays")
	})

	t.Run("rejects a duplicate location within a day", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()

		err := service.ReplaceDays(ctx, userID, itineraryID, []types.ItineraryDay{
			{DayNumber: 1, LocationIDs: []string{"tower", "tower"}},
		})
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "ReplaceDays")
	})

	t.Run("same location on different days is allowed", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()
		days := []types.ItineraryDay{
			{DayNumber: 1, LocationIDs: []string{"tower"}},
			{DayNumber: 2, LocationIDs: []string{"tower"}},
		}
		mockRepo.On("ReplaceDays", mock.Anything, userID, itineraryID, days).Return(nil).Once()

		require.NoError(t, service.ReplaceDays(ctx, userID, itineraryID, days))
		mockRepo.AssertExpectations(t)
	})
}

func TestServiceImpl_GetItinerary(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	itineraryID := uuid.New()

	t.Run("not found propagates the sentinel", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()
		mockRepo.On("GetItinerary", mock.Anything, userID, itineraryID).Return(nil, api.ErrNotFound).Once()

		_, err := service.GetItinerary(ctx, userID, itineraryID)
		assert.ErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("foreign itinerary propagates forbidden", func(t *testing.T) {
		service, mockRepo := setupItineraryServiceTest()
		mockRepo.On("GetItinerary", mock.Anything, userID, itineraryID).Return(nil, api.ErrForbidden).Once()

		_, err := service.GetItinerary(ctx, userID, itineraryID)
		assert.ErrorIs(t, err, api.ErrForbidden)
	})
}

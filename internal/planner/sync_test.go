package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// MockItineraryBackend is a mock implementation of ItineraryBackend
type MockItineraryBackend struct {
	mock.Mock
}

func (m *MockItineraryBackend) GetItinerary(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error) {
	args := m.Called(ctx, userID, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockItineraryBackend) ReplaceDays(ctx context.Context, userID, itineraryID uuid.UUID, days []types.ItineraryDay) error {
	args := m.Called(ctx, userID, itineraryID, days)
	return args.Error(0)
}

const testDebounce = 50 * time.Millisecond

func waitForStatus(t *testing.T, s *Synchronizer, want types.SyncStatus) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if s.Status() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %q, still %q", want, s.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func setupSynchronizer(t *testing.T, maxAttempts int) (*Synchronizer, *Editor, *MockItineraryBackend) {
	t.Helper()
	backend := new(MockItineraryBackend)
	userID := uuid.New()
	itineraryID := uuid.New()

	var syncer *Synchronizer
	editor := NewEditor(types.Itinerary{ID: itineraryID, UserID: userID}, func() {
		syncer.MarkDirty()
	})
	syncer = NewSynchronizer(backend, userID, itineraryID, editor.Snapshot, testDebounce, maxAttempts, newBroadcaster(), testLogger())
	t.Cleanup(syncer.Close)
	return syncer, editor, backend
}

func TestSynchronizer_DebouncesBurstIntoOneSave(t *testing.T) {
	syncer, editor, backend := setupSynchronizer(t, 1)

	var saved [][]types.ItineraryDay
	var mu sync.Mutex
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			saved = append(saved, args.Get(3).([]types.ItineraryDay))
			mu.Unlock()
		}).Return(nil)

	// A burst of edits well inside the quiescence window.
	require.NoError(t, editor.AddLocationToDay(1, "tower"))
	require.NoError(t, editor.AddLocationToDay(1, "museum"))
	editor.AddDay()
	require.NoError(t, editor.AddLocationToDay(2, "park"))

	assert.Equal(t, types.SyncStatusDirty, syncer.Status())

	waitForStatus(t, syncer, types.SyncStatusClean)
	syncer.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, saved, 1, "burst must collapse into a single save")
	require.Len(t, saved[0], 2)
	assert.Equal(t, []string{"tower", "museum"}, saved[0][0].LocationIDs)
	assert.Equal(t, []string{"park"}, saved[0][1].LocationIDs)
}

func TestSynchronizer_EditDuringSaveRequeues(t *testing.T) {
	syncer, editor, backend := setupSynchronizer(t, 1)

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls []int
	var mu sync.Mutex
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			days := args.Get(3).([]types.ItineraryDay)
			mu.Lock()
			calls = append(calls, len(days[0].LocationIDs))
			first := len(calls) == 1
			mu.Unlock()
			if first {
				close(entered)
				<-release
			}
		}).Return(nil)

	require.NoError(t, editor.AddLocationToDay(1, "tower"))

	<-entered
	assert.Equal(t, types.SyncStatusSaving, syncer.Status())

	// Edit while the first save is still on the wire.
	require.NoError(t, editor.AddLocationToDay(1, "museum"))
	close(release)

	waitForStatus(t, syncer, types.SyncStatusClean)
	syncer.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 2, "mid-save edit must requeue a follow-up save")
	assert.Equal(t, 2, calls[1], "follow-up save carries the latest state")
}

func TestSynchronizer_EditDuringFailedSaveRequeues(t *testing.T) {
	syncer, editor, backend := setupSynchronizer(t, 1)

	entered := make(chan struct{})
	release := make(chan struct{})
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).Return(errors.New("backend down")).Once()

	var followUp []types.ItineraryDay
	var mu sync.Mutex
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			followUp = args.Get(3).([]types.ItineraryDay)
			mu.Unlock()
		}).Return(nil)

	require.NoError(t, editor.AddLocationToDay(1, "tower"))

	<-entered
	// Edit while the save that is about to fail is still on the wire.
	require.NoError(t, editor.AddLocationToDay(1, "museum"))
	close(release)

	// The newer content must be requeued even though the save failed;
	// without a further edit the follow-up save runs and lands clean.
	waitForStatus(t, syncer, types.SyncStatusClean)
	syncer.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, followUp, "mid-save edit must requeue after a failed save")
	assert.Equal(t, []string{"tower", "museum"}, followUp[0].LocationIDs)
	assert.NoError(t, syncer.LastError())
}

func TestSynchronizer_ErrorStatePreservesEdits(t *testing.T) {
	syncer, editor, backend := setupSynchronizer(t, 1)

	saveErr := errors.New("backend down")
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(saveErr)

	require.NoError(t, editor.AddLocationToDay(1, "tower"))

	waitForStatus(t, syncer, types.SyncStatusError)
	syncer.Wait()

	assert.ErrorIs(t, syncer.LastError(), saveErr)
	// Local edits survive; nothing rolled back.
	assert.Equal(t, []string{"tower"}, editor.Days()[0].LocationIDs)

	// The next edit leaves the error state and tries again.
	backend.ExpectedCalls = nil
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, editor.AddLocationToDay(1, "museum"))
	waitForStatus(t, syncer, types.SyncStatusClean)
	assert.NoError(t, syncer.LastError())
}

func TestSynchronizer_BoundedRetry(t *testing.T) {
	syncer, editor, backend := setupSynchronizer(t, 3)

	var attempts int
	var mu sync.Mutex
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			attempts++
			mu.Unlock()
		}).Return(errors.New("still down"))

	require.NoError(t, editor.AddLocationToDay(1, "tower"))

	waitForStatus(t, syncer, types.SyncStatusError)
	syncer.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts, "save gives up after the configured attempts")
}

func TestSynchronizer_RetrySucceedsMidway(t *testing.T) {
	syncer, editor, backend := setupSynchronizer(t, 3)

	var attempts int
	var mu sync.Mutex
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			attempts++
			mu.Unlock()
		}).Return(errors.New("flaky")).Twice()
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			attempts++
			mu.Unlock()
		}).Return(nil).Once()

	require.NoError(t, editor.AddLocationToDay(1, "tower"))

	waitForStatus(t, syncer, types.SyncStatusClean)
	syncer.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
	assert.NoError(t, syncer.LastError())
}

func TestSynchronizer_CloseFlushesPendingEdits(t *testing.T) {
	backend := new(MockItineraryBackend)
	userID := uuid.New()
	itineraryID := uuid.New()

	var syncer *Synchronizer
	editor := NewEditor(types.Itinerary{ID: itineraryID, UserID: userID}, func() {
		syncer.MarkDirty()
	})
	// A long debounce that would never fire within the test on its own.
	syncer = NewSynchronizer(backend, userID, itineraryID, editor.Snapshot, time.Hour, 1, newBroadcaster(), testLogger())

	saved := make(chan []types.ItineraryDay, 1)
	backend.On("ReplaceDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			saved <- args.Get(3).([]types.ItineraryDay)
		}).Return(nil).Once()

	require.NoError(t, editor.AddLocationToDay(1, "tower"))
	syncer.Close()

	select {
	case days := <-saved:
		assert.Equal(t, []string{"tower"}, days[0].LocationIDs)
	case <-time.After(3 * time.Second):
		t.Fatal("close must flush unsaved edits")
	}
	syncer.Wait()
}

func TestSynchronizer_CleanStaysIdle(t *testing.T) {
	syncer, _, backend := setupSynchronizer(t, 1)

	time.Sleep(3 * testDebounce)

	assert.Equal(t, types.SyncStatusClean, syncer.Status())
	backend.AssertNotCalled(t, "ReplaceDays")
}

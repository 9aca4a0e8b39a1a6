package planner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-trip-explorer/app/tracer"
	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// ItineraryBackend is the remote itinerary store.
type ItineraryBackend interface {
	GetItinerary(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error)
	// ReplaceDays atomically replaces the day/location structure for the
	// itinerary. The store rejects calls for itineraries the user does not
	// own; the synchronizer does not re-derive ownership.
	ReplaceDays(ctx context.Context, userID, itineraryID uuid.UUID, days []types.ItineraryDay) error
}

const saveAttemptTimeout = 15 * time.Second

// Synchronizer watches an itinerary editor and persists its state through a
// debounced, last-write-wins replace protocol.
//
// State machine: clean -> dirty -> saving -> clean, with saving -> error
// when every retry fails. A burst of edits inside the quiescence window
// collapses into one save; an edit during an in-flight save requeues a
// following save rather than interrupting the one outstanding request.
// There is never more than one pending timer or one in-flight save.
type Synchronizer struct {
	logger      *slog.Logger
	backend     ItineraryBackend
	events      *broadcaster
	userID      uuid.UUID
	itineraryID uuid.UUID
	snapshot    func() types.Itinerary
	delay       time.Duration
	maxAttempts int
	backoffBase time.Duration

	mu       sync.Mutex
	status   types.SyncStatus
	lastErr  error
	timer    *time.Timer
	gen      uint64
	saving   bool
	closed   bool
	inFlight sync.WaitGroup
}

// NewSynchronizer builds a synchronizer in the clean state. snapshot must
// return the editor's current deep-copied state; it is invoked at flush
// time so the payload always reflects the last edit, not the first.
func NewSynchronizer(backend ItineraryBackend, userID, itineraryID uuid.UUID, snapshot func() types.Itinerary, delay time.Duration, maxAttempts int, events *broadcaster, logger *slog.Logger) *Synchronizer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Synchronizer{
		logger:      logger,
		backend:     backend,
		events:      events,
		userID:      userID,
		itineraryID: itineraryID,
		snapshot:    snapshot,
		delay:       delay,
		maxAttempts: maxAttempts,
		backoffBase: 250 * time.Millisecond,
		status:      types.SyncStatusClean,
	}
}

// MarkDirty records that observable itinerary content changed and
// (re)starts the quiescence timer, cancelling any pending one. Wired as
// the editor's onChange hook.
func (s *Synchronizer) MarkDirty() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	changed := s.status != types.SyncStatusDirty
	s.status = types.SyncStatusDirty
	if !s.saving {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = time.AfterFunc(s.delay, s.flush)
	}
	s.mu.Unlock()

	if changed {
		s.events.publish(Event{Kind: EventSyncStatusChanged})
	}
}

// flush performs one save cycle: saving state, current snapshot, bounded
// retries, then clean / dirty-requeued / error.
func (s *Synchronizer) flush() {
	s.mu.Lock()
	if s.saving || s.status != types.SyncStatusDirty {
		s.mu.Unlock()
		return
	}
	s.saving = true
	s.status = types.SyncStatusSaving
	gen := s.gen
	s.inFlight.Add(1)
	s.mu.Unlock()
	defer s.inFlight.Done()

	s.events.publish(Event{Kind: EventSyncStatusChanged})

	snap := s.snapshot()
	err := s.replaceWithRetry(snap.Days)

	s.mu.Lock()
	s.saving = false
	// An edit that landed mid-save needs a save of its own regardless of
	// how this one ended, so the requeue decision ignores err.
	requeue := s.gen != gen && !s.closed
	switch {
	case s.gen != gen:
		s.status = types.SyncStatusDirty
	case err != nil:
		s.status = types.SyncStatusError
	default:
		s.status = types.SyncStatusClean
	}
	s.lastErr = err
	if requeue {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = time.AfterFunc(s.delay, s.flush)
	}
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventSyncStatusChanged})
}

func (s *Synchronizer) replaceWithRetry(days []types.ItineraryDay) error {
	ctx, span := otel.Tracer("Synchronizer").Start(context.Background(), "ReplaceDays")
	defer span.End()
	span.SetAttributes(
		attribute.String("itinerary.id", s.itineraryID.String()),
		attribute.Int("days.count", len(days)),
	)

	start := time.Now()
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, saveAttemptTimeout)
		err = s.backend.ReplaceDays(attemptCtx, s.userID, s.itineraryID, days)
		cancel()
		if err == nil {
			break
		}
		s.logger.WarnContext(ctx, "Itinerary save attempt failed",
			slog.String("itineraryID", s.itineraryID.String()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.maxAttempts),
			slog.Any("error", err),
		)
		if attempt < s.maxAttempts {
			time.Sleep(s.backoffBase << (attempt - 1))
		}
	}

	m := tracer.Get()
	m.ItinerarySavesTotal.Add(ctx, 1)
	m.ItinerarySaveDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		m.ItinerarySaveErrorsTotal.Add(ctx, 1)
		s.logger.ErrorContext(ctx, "Itinerary save exhausted retries, local edits preserved",
			slog.String("itineraryID", s.itineraryID.String()),
			slog.Any("error", err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return err
	}
	span.SetStatus(codes.Ok, "saved")
	return nil
}

// Status returns the current sync status.
func (s *Synchronizer) Status() types.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastError returns the error that parked the itinerary in the error
// state, if any.
func (s *Synchronizer) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close stops the pending timer. Unsaved edits are flushed immediately and
// an in-flight save is left to finish, so closing the view never drops the
// last edit.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	flushNow := s.status == types.SyncStatusDirty && !s.saving
	s.mu.Unlock()

	if flushNow {
		go s.flush()
	}
}

// Wait blocks until no save is in flight. Test hook.
func (s *Synchronizer) Wait() {
	s.inFlight.Wait()
}

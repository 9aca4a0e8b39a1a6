package planner

import (
	"sort"
	"sync"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// Editor is the in-memory state machine over an itinerary's day list.
// Every operation is synchronous and performs no I/O; mutations that change
// observable content invoke onChange, which the persistence synchronizer
// uses to mark the itinerary dirty.
//
// Invariant after any completed mutation: day numbers are exactly 1..N with
// no gaps or duplicates, and a location id appears at most once per day.
type Editor struct {
	mu        sync.Mutex
	itinerary types.Itinerary
	onChange  func()
}

// NewEditor wraps an itinerary for editing. An itinerary with no days gets
// one empty day so there is always a day to plan into. Day numbers are
// renormalized to 1..N in existing order, so a store that hands back gapped
// or unsorted numbering cannot break the contiguity invariant.
func NewEditor(itinerary types.Itinerary, onChange func()) *Editor {
	if len(itinerary.Days) == 0 {
		itinerary.Days = []types.ItineraryDay{{DayNumber: 1, LocationIDs: []string{}}}
	}
	days := make([]types.ItineraryDay, len(itinerary.Days))
	copy(days, itinerary.Days)
	sort.SliceStable(days, func(i, j int) bool { return days[i].DayNumber < days[j].DayNumber })
	for i := range days {
		days[i].DayNumber = i + 1
		if days[i].LocationIDs == nil {
			days[i].LocationIDs = []string{}
		}
	}
	itinerary.Days = days
	return &Editor{itinerary: itinerary, onChange: onChange}
}

func (e *Editor) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}

// AddDay appends a new empty day numbered one past the current highest.
func (e *Editor) AddDay() types.ItineraryDay {
	e.mu.Lock()
	next := 1
	for _, day := range e.itinerary.Days {
		if day.DayNumber >= next {
			next = day.DayNumber + 1
		}
	}
	day := types.ItineraryDay{DayNumber: next, LocationIDs: []string{}}
	e.itinerary.Days = append(e.itinerary.Days, day)
	e.mu.Unlock()

	e.notify()
	return day
}

// RemoveDay deletes day n and renumbers every later day down by one,
// re-establishing contiguity. Removing the last remaining day is refused.
func (e *Editor) RemoveDay(n int) error {
	e.mu.Lock()
	if len(e.itinerary.Days) <= 1 {
		e.mu.Unlock()
		return ErrLastDay
	}
	idx := -1
	for i, day := range e.itinerary.Days {
		if day.DayNumber == n {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return ErrNoSuchDay
	}
	e.itinerary.Days = append(e.itinerary.Days[:idx], e.itinerary.Days[idx+1:]...)
	for i := range e.itinerary.Days {
		if e.itinerary.Days[i].DayNumber > n {
			e.itinerary.Days[i].DayNumber--
		}
	}
	e.mu.Unlock()

	e.notify()
	return nil
}

// AddLocationToDay appends locationID to day n. Re-adding an id already
// present in that day is a no-op and does not mark the itinerary dirty.
func (e *Editor) AddLocationToDay(n int, locationID string) error {
	e.mu.Lock()
	day := e.dayLocked(n)
	if day == nil {
		e.mu.Unlock()
		return ErrNoSuchDay
	}
	for _, id := range day.LocationIDs {
		if id == locationID {
			e.mu.Unlock()
			return nil
		}
	}
	day.LocationIDs = append(day.LocationIDs, locationID)
	e.mu.Unlock()

	e.notify()
	return nil
}

// RemoveLocationFromDay removes locationID from day n if present.
func (e *Editor) RemoveLocationFromDay(n int, locationID string) error {
	e.mu.Lock()
	day := e.dayLocked(n)
	if day == nil {
		e.mu.Unlock()
		return ErrNoSuchDay
	}
	removed := false
	for i, id := range day.LocationIDs {
		if id == locationID {
			day.LocationIDs = append(day.LocationIDs[:i], day.LocationIDs[i+1:]...)
			removed = true
			break
		}
	}
	e.mu.Unlock()

	if removed {
		e.notify()
	}
	return nil
}

// dayLocked returns a pointer into the day slice; callers hold e.mu.
func (e *Editor) dayLocked(n int) *types.ItineraryDay {
	for i := range e.itinerary.Days {
		if e.itinerary.Days[i].DayNumber == n {
			return &e.itinerary.Days[i]
		}
	}
	return nil
}

// Snapshot returns a deep copy of the current itinerary state. The
// synchronizer serializes this at flush time so a save always carries the
// latest edits, not the state when its timer was armed.
func (e *Editor) Snapshot() types.Itinerary {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.itinerary
	snap.Days = types.CloneDays(e.itinerary.Days)
	return snap
}

// Days returns a deep copy of the day list ordered by day number.
func (e *Editor) Days() []types.ItineraryDay {
	e.mu.Lock()
	defer e.mu.Unlock()
	return types.CloneDays(e.itinerary.Days)
}

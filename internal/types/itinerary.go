package types

import (
	"time"

	"github.com/google/uuid"
)

// ItineraryDay holds the ordered locations planned for one day.
// Day numbers are contiguous starting at 1; a location id appears at most
// once within a day.
type ItineraryDay struct {
	DayNumber   int      `json:"day_number"`
	LocationIDs []string `json:"location_ids"`
}

// Clone returns a deep copy so callers can hold a snapshot while the
// editor keeps mutating.
func (d ItineraryDay) Clone() ItineraryDay {
	ids := make([]string, len(d.LocationIDs))
	copy(ids, d.LocationIDs)
	return ItineraryDay{DayNumber: d.DayNumber, LocationIDs: ids}
}

// Itinerary is a named multi-day trip plan.
type Itinerary struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Name      string         `json:"name"`
	Days      []ItineraryDay `json:"days"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// CloneDays deep-copies the day list.
func CloneDays(days []ItineraryDay) []ItineraryDay {
	out := make([]ItineraryDay, len(days))
	for i, d := range days {
		out[i] = d.Clone()
	}
	return out
}

// SyncStatus tracks where an itinerary sits in the persistence cycle.
type SyncStatus string

const (
	SyncStatusClean  SyncStatus = "clean"
	SyncStatusDirty  SyncStatus = "dirty"
	SyncStatusSaving SyncStatus = "saving"
	SyncStatusError  SyncStatus = "error"
)

// CreateItineraryRequest is the body for creating a new itinerary.
type CreateItineraryRequest struct {
	Name string `json:"name"`
	// Days defaults to a single empty day when omitted.
	Days []ItineraryDay `json:"days,omitempty"`
}

// ReplaceDaysRequest atomically replaces the day/location structure of an
// itinerary.
type ReplaceDaysRequest struct {
	Days []ItineraryDay `json:"days"`
}

// ToggleFavoriteRequest is the body for toggling a favourite.
type ToggleFavoriteRequest struct {
	LocationID string `json:"location_id"`
}

// ToggleFavoriteResponse reports the membership state after a toggle.
type ToggleFavoriteResponse struct {
	LocationID string `json:"location_id"`
	Favorited  bool   `json:"favorited"`
}

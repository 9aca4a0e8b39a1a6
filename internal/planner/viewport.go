package planner

import (
	"sync"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// Viewport tracks the active map bounds and the subset of the filtered set
// that falls inside them, plus the single-shot fit-to-locations signal the
// map consumes after filter/search changes.
type Viewport struct {
	events *broadcaster

	mu        sync.Mutex
	bounds    *types.Bounds
	fitTarget []types.Location
}

func NewViewport(events *broadcaster) *Viewport {
	return &Viewport{events: events}
}

// SetBounds records the bounds after a pan or zoom. Until the first call
// the viewport is unbounded and every location counts as visible.
func (v *Viewport) SetBounds(b types.Bounds) {
	v.mu.Lock()
	v.bounds = &b
	v.mu.Unlock()
	v.events.publish(Event{Kind: EventVisibleSetChanged})
}

// Bounds returns the active bounds, or false before the first SetBounds.
func (v *Viewport) Bounds() (types.Bounds, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bounds == nil {
		return types.Bounds{}, false
	}
	return *v.bounds, true
}

// VisibleInBounds returns the subset of filtered whose coordinates fall
// inside the active bounds, preserving order.
func (v *Viewport) VisibleInBounds(filtered []types.Location) []types.Location {
	v.mu.Lock()
	bounds := v.bounds
	v.mu.Unlock()
	if bounds == nil {
		return filtered
	}
	out := make([]types.Location, 0, len(filtered))
	for _, loc := range filtered {
		if bounds.Contains(loc.Latitude, loc.Longitude) {
			out = append(out, loc)
		}
	}
	return out
}

// RequestFit asserts the fit signal for the given locations. An empty set
// is ignored: the map keeps its current view rather than animating to
// nothing. The signal stays asserted until AckFit and must not re-fire on
// its own, so the map never loops its animation.
func (v *Viewport) RequestFit(locations []types.Location) {
	if len(locations) == 0 {
		return
	}
	target := make([]types.Location, len(locations))
	copy(target, locations)
	v.mu.Lock()
	v.fitTarget = target
	v.mu.Unlock()
	v.events.publish(Event{Kind: EventFitRequested})
}

// PendingFit returns the asserted fit target and its enclosing bounds, or
// false when no fit is pending.
func (v *Viewport) PendingFit() ([]types.Location, types.Bounds, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fitTarget == nil {
		return nil, types.Bounds{}, false
	}
	bounds, _ := types.BoundsAround(v.fitTarget)
	return v.fitTarget, bounds, true
}

// AckFit clears the fit signal. The map calls this after its animation
// settles; the signal only re-fires when explicitly reasserted.
func (v *Viewport) AckFit() {
	v.mu.Lock()
	v.fitTarget = nil
	v.mu.Unlock()
}

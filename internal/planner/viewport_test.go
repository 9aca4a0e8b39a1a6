package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

func lisbonLocations() []types.Location {
	return []types.Location{
		{ID: "tower", Latitude: 38.6916, Longitude: -9.2160},
		{ID: "museum", Latitude: 38.7250, Longitude: -9.1135},
		{ID: "park", Latitude: 38.7280, Longitude: -9.1527},
	}
}

func TestViewport_VisibleInBounds(t *testing.T) {
	v := NewViewport(newBroadcaster())
	locations := lisbonLocations()

	t.Run("unbounded viewport shows everything", func(t *testing.T) {
		assert.Equal(t, locations, v.VisibleInBounds(locations))
	})

	t.Run("only locations inside the bounds", func(t *testing.T) {
		// A window over central Lisbon, excluding Belem.
		v.SetBounds(types.Bounds{SouthLat: 38.70, WestLng: -9.17, NorthLat: 38.75, EastLng: -9.10})

		got := v.VisibleInBounds(locations)
		assert.Equal(t, []string{"museum", "park"}, visibleIDs(got))
	})
}

func TestBounds_ContainsAntimeridian(t *testing.T) {
	b := types.Bounds{SouthLat: -10, WestLng: 170, NorthLat: 10, EastLng: -170}

	assert.True(t, b.Contains(0, 178))
	assert.True(t, b.Contains(0, -178))
	assert.False(t, b.Contains(0, 0))
}

func TestViewport_FitSignalIsOneShot(t *testing.T) {
	events := newBroadcaster()
	var fits int
	events.subscribe(func(ev Event) {
		if ev.Kind == EventFitRequested {
			fits++
		}
	})
	v := NewViewport(events)

	_, _, pending := v.PendingFit()
	assert.False(t, pending)

	v.RequestFit(lisbonLocations())
	assert.Equal(t, 1, fits)

	target, bounds, pending := v.PendingFit()
	require.True(t, pending)
	assert.Len(t, target, 3)
	assert.InDelta(t, 38.6916, bounds.SouthLat, 1e-9)
	assert.InDelta(t, 38.7280, bounds.NorthLat, 1e-9)
	assert.InDelta(t, -9.2160, bounds.WestLng, 1e-9)
	assert.InDelta(t, -9.1135, bounds.EastLng, 1e-9)

	// Reading the signal does not consume it; only AckFit does.
	_, _, pending = v.PendingFit()
	assert.True(t, pending)

	v.AckFit()
	_, _, pending = v.PendingFit()
	assert.False(t, pending)
	assert.Equal(t, 1, fits, "fit must not re-fire on its own")
}

func TestViewport_RequestFitIgnoresEmptySet(t *testing.T) {
	v := NewViewport(newBroadcaster())

	v.RequestFit(nil)

	_, _, pending := v.PendingFit()
	assert.False(t, pending, "empty result keeps the current view")
}

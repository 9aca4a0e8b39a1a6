package planner

import "errors"

var (
	// ErrLoginRequired is returned when a mutation needs an authenticated
	// user. No network call is made.
	ErrLoginRequired = errors.New("planner: login required")

	// ErrToggleInFlight is returned when a favourite toggle for the same
	// location is still outstanding.
	ErrToggleInFlight = errors.New("planner: toggle already in flight")

	// ErrLastDay is returned when removing the only remaining day.
	ErrLastDay = errors.New("planner: itinerary must keep at least one day")

	// ErrNoSuchDay is returned for a day number outside 1..N.
	ErrNoSuchDay = errors.New("planner: no such day")

	// ErrUnknownLocation is returned when a location id is not in the
	// session catalog.
	ErrUnknownLocation = errors.New("planner: unknown location")

	// ErrNoItinerary is returned when an itinerary operation runs before
	// an itinerary is open in the session.
	ErrNoItinerary = errors.New("planner: no itinerary open")
)

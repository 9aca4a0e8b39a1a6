package planner

import "sync"

// EventKind identifies which slice of session state changed.
type EventKind string

const (
	EventVisibleSetChanged EventKind = "visible_set_changed"
	EventFitRequested      EventKind = "fit_requested"
	EventFavoritesChanged  EventKind = "favorites_changed"
	EventItineraryChanged  EventKind = "itinerary_changed"
	EventSyncStatusChanged EventKind = "sync_status_changed"
)

// Event is a notification that a slice of session state changed. Consumers
// re-read the state they care about; events carry no payload so observers
// can never act on a stale snapshot.
type Event struct {
	Kind EventKind `json:"kind"`
}

// broadcaster is a minimal synchronous pub/sub hub. It replaces the
// framework-driven reactivity of a UI layer with an explicit observer list:
// every state change notifies all subscribers before the mutating call
// returns.
type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]func(Event))}
}

// subscribe registers fn and returns an unsubscribe func.
func (b *broadcaster) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// publish delivers ev to every subscriber synchronously.
func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

package rainbow

import (
	"sync"
)

// EventKind names something that happened during a fill.
type EventKind string

const (
	EventFillStarted     EventKind = "fill-started"
	EventFillFinished    EventKind = "fill-finished"
	EventChainAdded      EventKind = "chain-added"
	EventChainMerged     EventKind = "chain-merged"
	EventChainDuplicate  EventKind = "chain-duplicate"
	EventCandidateFailed EventKind = "candidate-failed"
)

// Event is passed to subscribers.
// Start is empty for fill-started and fill-finished, Err is set only for
// candidate-failed.
type Event struct {
	Kind   EventKind
	Worker int
	Start  string
	Err    error
}

// A Callback is notified about events it subscribed to.
// Callbacks are invoked synchronously from fill workers and must be safe for
// concurrent use.
type Callback interface {
	Call(Event)
}

// CallbackFunc adapts a function to the Callback interface.
type CallbackFunc func(Event)

// Call implements Callback.
func (f CallbackFunc) Call(ev Event) {
	f(ev)
}

// EventManager fans events out to subscribers.
type EventManager struct {
	mu     sync.RWMutex
	events map[EventKind][]Callback
}

// NewEventManager creates an EventManager without subscribers.
func NewEventManager() *EventManager {
	return &EventManager{
		events: make(map[EventKind][]Callback),
	}
}

// Subscribe registers callback for events of the given kind.
func (em *EventManager) Subscribe(kind EventKind, callback Callback) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.events[kind] = append(em.events[kind], callback)
}

// Emit notifies all subscribers of ev.Kind.
// A nil EventManager drops events.
func (em *EventManager) Emit(ev Event) {
	if em == nil {
		return
	}
	em.mu.RLock()
	callbacks := em.events[ev.Kind]
	em.mu.RUnlock()

	for _, c := range callbacks {
		c.Call(ev)
	}
}

package sim

// Phase orders the events that happen at the same virtual time.
//
// All active events of a time slot run before its read-write events, and all
// read-write events run before its read-only events. An active event that is
// scheduled while the slot is already in a later phase runs next, before the
// remaining events of that later phase.
type Phase int

// Phases of a time slot.
const (
	// PhaseActive is where clock edges, timers and device logic run.
	PhaseActive Phase = iota

	// PhaseReadWrite is where testbench tasks drive signals after an edge.
	PhaseReadWrite

	// PhaseReadOnly is the settle point. Signals can be observed but not
	// driven.
	PhaseReadOnly
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseReadWrite:
		return "read-write"
	case PhaseReadOnly:
		return "read-only"
	default:
		return "unknown"
	}
}

// An Event is something going to happen in the future.
type Event interface {
	// Time returns the time that the event should happen.
	Time() VTime

	// Phase returns the sub-step of the time slot the event belongs to.
	Phase() Phase

	// Handler returns the handler that should handle the event.
	Handler() Handler
}

// EventBase provides the basic fields and getters for other events.
type EventBase struct {
	ID      string
	time    VTime
	phase   Phase
	handler Handler
}

// NewEventBase creates a new EventBase.
func NewEventBase(t VTime, phase Phase, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = GetIDGenerator().Generate()
	e.time = t
	e.phase = phase
	e.handler = handler

	return e
}

// Time returns the time that the event is going to happen.
func (e EventBase) Time() VTime {
	return e.time
}

// Phase returns the phase of the event.
func (e EventBase) Phase() Phase {
	return e.phase
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// A Handler defines a domain for the events.
type Handler interface {
	Handle(e Event) error
}

// HandlerFunc turns a function into a Handler.
type HandlerFunc func(e Event) error

// Handle calls f(e).
func (f HandlerFunc) Handle(e Event) error {
	return f(e)
}

// Package engine implements the virtual-time discrete-event scheduler and
// the cooperative resource primitives (Container, Store) that every
// AsyncFlow runtime suspends on. No goroutines are used: the scheduler is
// the sole re-entrant owner of time advancement, and all "suspension" is
// modelled as scheduling a continuation event for a later instant.
package engine

// EventType classifies an event for same-timestamp tie-breaking. Lower
// values run first at equal timestamps.
type EventType int

const (
	// EventTypeInjectionEnd restores a previously mutated edge/server state
	// (spike end, server-up). Processed before any START at the same instant.
	EventTypeInjectionEnd EventType = iota
	// EventTypeInjectionStart applies a spike or outage.
	EventTypeInjectionStart
	// EventTypeGeneric covers every other continuation: edge delivery,
	// generator ticks, server handler steps, LB/client forwarding, and the
	// sampled-metric collector's periodic tick. Ties within this class are
	// broken by registration order (monotonically increasing event ID).
	EventTypeGeneric
)

// EventTypePriority maps an EventType to its ordering rank.
var EventTypePriority = map[EventType]int{
	EventTypeInjectionEnd:   0,
	EventTypeInjectionStart: 1,
	EventTypeGeneric:        2,
}

// Event is a single scheduled continuation: "run fn at timestamp t".
type Event interface {
	Timestamp() float64
	EventID() uint64
	Type() EventType
	Execute()
}

// callbackEvent is the one concrete Event implementation. Every suspension
// point (timeout, store/container wakeup, periodic tick) is a generic
// "resume this task" continuation, so a single closure-carrying event type
// covers every caller.
type callbackEvent struct {
	timestamp float64
	eventID   uint64
	eventType EventType
	fn        func()
}

func (e *callbackEvent) Timestamp() float64 { return e.timestamp }
func (e *callbackEvent) EventID() uint64    { return e.eventID }
func (e *callbackEvent) Type() EventType    { return e.eventType }
func (e *callbackEvent) Execute()           { e.fn() }

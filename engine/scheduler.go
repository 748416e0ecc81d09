package engine

import "fmt"

// Scheduler drives the virtual-time event loop. It owns `now`, a monotone
// clock starting at 0, advanced only by the next scheduled event's
// timestamp.
type Scheduler struct {
	now         float64
	horizon     float64
	queue       *EventHeap
	nextEventID uint64
}

// NewScheduler creates a scheduler bounded by the given horizon (the run
// terminates once `now` would reach horizon; events scheduled at exactly
// that timestamp are never executed, per the documented boundary rule).
func NewScheduler(horizon float64) *Scheduler {
	return &Scheduler{
		horizon: horizon,
		queue:   NewEventHeap(),
	}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() float64 { return s.now }

// Horizon returns the simulation's total horizon.
func (s *Scheduler) Horizon() float64 { return s.horizon }

func (s *Scheduler) nextID() uint64 {
	s.nextEventID++
	return s.nextEventID
}

// Schedule registers fn to run at absolute time `at` (must be ≥ Now()).
// This is the single entry point every runtime uses to suspend: a
// `timeout(d)` yield is `sched.Schedule(sched.Now()+d, EventTypeGeneric, fn)`.
func (s *Scheduler) Schedule(at float64, typ EventType, fn func()) {
	if at < s.now {
		panic(fmt.Sprintf("engine: cannot schedule event in the past: at=%v now=%v", at, s.now))
	}
	s.queue.Schedule(&callbackEvent{
		timestamp: at,
		eventID:   s.nextID(),
		eventType: typ,
		fn:        fn,
	})
}

// ScheduleNow registers fn to run at the current instant, after everything
// already queued at `now` with equal-or-lower priority. Used by primitives
// (Container/Store wakeups) that must not re-enter synchronously but also
// must not advance the clock.
func (s *Scheduler) ScheduleNow(typ EventType, fn func()) {
	s.Schedule(s.now, typ, fn)
}

// Run drains the event queue until it is empty or the horizon is reached.
// Events timestamped at or beyond the horizon are discarded unexecuted; an
// event landing exactly on the horizon never runs.
func (s *Scheduler) Run() {
	for s.queue.Len() > 0 {
		event := s.queue.Peek()
		if event.Timestamp() >= s.horizon {
			return
		}

		event = s.queue.PopNext()
		if event.Timestamp() < s.now {
			panic(fmt.Sprintf("engine: clock went backwards: %v < %v", event.Timestamp(), s.now))
		}
		s.now = event.Timestamp()
		event.Execute()
	}
}

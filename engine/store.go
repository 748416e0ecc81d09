package engine

// Store is an unbounded FIFO message queue. Put never blocks; Get
// blocks when empty, and waiters are served in FIFO order as values arrive.
// Like Container, every wakeup is routed through the scheduler's
// ScheduleNow rather than invoked inline, so a chain of Put/Get hand-offs
// across components unwinds between hops instead of deepening the call
// stack (see engine/container.go's Get/Put doc comments).
type Store struct {
	queue   []interface{}
	waiters []func(interface{})
	sched   *Scheduler
}

// NewStore creates an empty Store. sched is the scheduler whose
// ScheduleNow every wakeup is routed through.
func NewStore(sched *Scheduler) *Store {
	return &Store{sched: sched}
}

// Len returns the number of values currently buffered (not the number of
// waiting consumers).
func (s *Store) Len() int { return len(s.queue) }

// Put enqueues v. If a consumer is already waiting, it is scheduled to run
// with v at the current instant (FIFO); otherwise v is buffered until a
// Get arrives.
func (s *Store) Put(v interface{}) {
	if len(s.waiters) > 0 {
		resume := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.sched.ScheduleNow(EventTypeGeneric, func() { resume(v) })
		return
	}
	s.queue = append(s.queue, v)
}

// Get consumes the next value. If one is buffered, resume is scheduled to
// run with it at the current instant. Otherwise resume is queued and will
// be scheduled, in FIFO arrival order relative to other waiting Gets, the
// next time Put is called.
func (s *Store) Get(resume func(interface{})) {
	if len(s.queue) > 0 {
		v := s.queue[0]
		s.queue = s.queue[1:]
		s.sched.ScheduleNow(EventTypeGeneric, func() { resume(v) })
		return
	}
	s.waiters = append(s.waiters, resume)
}

// Package request defines RequestState, the token threaded through the
// AsyncFlow topology, and its append-only Hop history.
package request

import "fmt"

// ComponentType identifies the kind of component a Hop was recorded at.
type ComponentType string

const (
	Generator ComponentType = "GENERATOR"
	Client    ComponentType = "CLIENT"
	LB        ComponentType = "LB"
	Server    ComponentType = "SERVER"
	Network   ComponentType = "NETWORK"
)

// Hop records a single component visit. T equals the scheduler's `now` at
// the instant the hop was recorded.
type Hop struct {
	ComponentType ComponentType
	ComponentID   string
	T             float64
}

// State is the token that flows generator → edge → (client) → edge →
// (LB) → edge → server → edge → client(completion). Created by the
// generator, discarded after completion capture.
type State struct {
	ID          int64
	InitialTime float64
	FinishTime  float64 // valid only once Finished is true
	Finished    bool
	History     []Hop
}

// New creates a RequestState generated at t with the given monotonically
// increasing id (ids start at 1).
func New(id int64, t float64) *State {
	return &State{ID: id, InitialTime: t}
}

// RecordHop appends a hop to the request's history. History[0] is always
// recorded at the generator; callers are responsible for calling this
// exactly once per component visit.
func (s *State) RecordHop(componentType ComponentType, componentID string, t float64) {
	s.History = append(s.History, Hop{ComponentType: componentType, ComponentID: componentID, T: t})
}

// LastHop returns the most recently recorded hop, or the zero Hop if none
// exists yet.
func (s *State) LastHop() (Hop, bool) {
	if len(s.History) == 0 {
		return Hop{}, false
	}
	return s.History[len(s.History)-1], true
}

// IsFirstVisitToClient reports whether the last component visited before
// the current client hop is the generator — i.e. whether this is the
// outbound (first) visit rather than the inbound (completion) visit.
// Network hops are transport, not component visits, so they are skipped
// when walking back through the history. Evaluated on the hop history,
// not an auxiliary flag.
func (s *State) IsFirstVisitToClient() bool {
	for i := len(s.History) - 2; i >= 0; i-- {
		if s.History[i].ComponentType == Network {
			continue
		}
		return s.History[i].ComponentType == Generator
	}
	return false
}

// Finish marks the request complete at time t. Panics if called twice; a
// request is finalized exactly once.
func (s *State) Finish(t float64) {
	if s.Finished {
		panic(fmt.Sprintf("request: Finish called twice for request %d", s.ID))
	}
	s.FinishTime = t
	s.Finished = true
}

// Latency returns FinishTime - InitialTime. Only meaningful once Finished.
func (s *State) Latency() float64 {
	return s.FinishTime - s.InitialTime
}

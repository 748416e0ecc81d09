// Package events implements the event-injection runtime: time-windowed
// mutations applied deterministically. Edge latency spikes add to a link's
// delay between a start and end marker; server outages temporarily remove,
// then restore, a server's LB→server edges.
package events

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
	"github.com/AsyncFlow-Sim/AsyncFlow/routing"
)

// Kind names an injection family.
type Kind string

const (
	KindEdgeSpike    Kind = "edge_spike"
	KindServerOutage Kind = "server_outage"
)

// Injection is a single scheduled mutation window.
type Injection struct {
	EventID  string
	TargetID string // edge ID for edge_spike, server ID for server_outage
	Kind     Kind
	TStart   float64
	TEnd     float64
	SpikeS   float64 // required iff Kind == KindEdgeSpike
}

// Validate checks the invariants that don't require topology knowledge
// (uniqueness and target existence are checked by the scenario validator,
// which has the full topology in view).
func (inj Injection) Validate(fieldPath string, horizon float64) error {
	switch inj.Kind {
	case KindEdgeSpike, KindServerOutage:
	default:
		return fmt.Errorf("%s: unknown kind %q", fieldPath, inj.Kind)
	}
	if !(inj.TStart >= 0 && inj.TStart < inj.TEnd && inj.TEnd <= horizon) {
		return fmt.Errorf("%s: requires 0 ≤ t_start < t_end ≤ horizon, got [%v,%v) horizon=%v", fieldPath, inj.TStart, inj.TEnd, horizon)
	}
	if inj.Kind == KindEdgeSpike && inj.SpikeS <= 0 {
		return fmt.Errorf("%s: edge_spike requires spike_s > 0", fieldPath)
	}
	return nil
}

// lbEdgeRef identifies one (LB, edge) pair whose edge targets a
// particular server — the unit of work an outage removes/restores.
type lbEdgeRef struct {
	lb     *routing.Runtime
	edgeID string
}

// Runtime applies a set of Injections to a live topology.
type Runtime struct {
	injections []Injection

	sched *engine.Scheduler

	edgesByID     map[string]*network.Runtime
	outageTargets map[string][]lbEdgeRef

	// stash holds the removed (lb, edgeID, runtime) triples for a
	// server-outage event, keyed by EventID, so its END marker can
	// restore exactly what its START marker removed.
	stash map[string][]stashedEdge

	edgesAffected map[string]bool
}

type stashedEdge struct {
	lb     *routing.Runtime
	edgeID string
	rt     *network.Runtime
}

// NewRuntime builds an injection runtime. edgesByID covers every edge in
// the topology (spikes look edges up directly); lbRuntimes covers every
// load balancer, used to discover which (LB, edge) pairs front which
// server for outage handling.
func NewRuntime(injections []Injection, edgesByID map[string]*network.Runtime, lbRuntimes []*routing.Runtime, sched *engine.Scheduler) *Runtime {
	r := &Runtime{
		injections:    injections,
		sched:         sched,
		edgesByID:     edgesByID,
		outageTargets: make(map[string][]lbEdgeRef),
		stash:         make(map[string][]stashedEdge),
		edgesAffected: make(map[string]bool),
	}

	for _, lb := range lbRuntimes {
		for _, edgeID := range append([]string(nil), lb.Edges.IDs()...) {
			rt := lb.Edges.Get(edgeID)
			if rt == nil {
				continue
			}
			server := rt.Edge.Target
			r.outageTargets[server] = append(r.outageTargets[server], lbEdgeRef{lb: lb, edgeID: edgeID})
		}
	}

	for _, inj := range injections {
		if inj.Kind == KindEdgeSpike {
			r.edgesAffected[inj.TargetID] = true
		}
	}

	return r
}

// EdgesAffected reports the set of edge IDs named by any spike injection,
// computed once at construction.
func (r *Runtime) EdgesAffected() map[string]bool { return r.edgesAffected }

// Start schedules every injection's start and end markers on the
// scheduler. Same-timestamp ordering (END before START) falls directly
// out of the scheduler's EventType priority: both families' END markers
// share EventTypeInjectionEnd and both families' START markers share
// EventTypeInjectionStart, so cross-family ties are resolved the same way
// as same-family ties.
func (r *Runtime) Start() {
	for _, inj := range r.injections {
		inj := inj
		r.sched.Schedule(inj.TStart, engine.EventTypeInjectionStart, func() {
			r.applyStart(inj)
		})
		r.sched.Schedule(inj.TEnd, engine.EventTypeInjectionEnd, func() {
			r.applyEnd(inj)
		})
	}
}

func (r *Runtime) applyStart(inj Injection) {
	switch inj.Kind {
	case KindEdgeSpike:
		if edge, ok := r.edgesByID[inj.TargetID]; ok {
			edge.AdjustSpike(inj.SpikeS)
			logrus.Debugf("event %s: spike +%v on edge %s at t=%v", inj.EventID, inj.SpikeS, inj.TargetID, r.sched.Now())
		}
	case KindServerOutage:
		var stashed []stashedEdge
		for _, ref := range r.outageTargets[inj.TargetID] {
			if rt, ok := ref.lb.Edges.Remove(ref.edgeID); ok {
				stashed = append(stashed, stashedEdge{lb: ref.lb, edgeID: ref.edgeID, rt: rt})
				ref.lb.NotifyEdgesChanged()
			}
		}
		r.stash[inj.EventID] = stashed
		logrus.Debugf("event %s: server %s down at t=%v (%d edges removed)", inj.EventID, inj.TargetID, r.sched.Now(), len(stashed))
	}
}

func (r *Runtime) applyEnd(inj Injection) {
	switch inj.Kind {
	case KindEdgeSpike:
		if edge, ok := r.edgesByID[inj.TargetID]; ok {
			edge.AdjustSpike(-inj.SpikeS)
			logrus.Debugf("event %s: spike -%v on edge %s at t=%v", inj.EventID, inj.SpikeS, inj.TargetID, r.sched.Now())
		}
	case KindServerOutage:
		for _, s := range r.stash[inj.EventID] {
			s.lb.Edges.Insert(s.edgeID, s.rt)
			s.lb.NotifyEdgesChanged()
		}
		delete(r.stash, inj.EventID)
		logrus.Debugf("event %s: server %s restored at t=%v", inj.EventID, inj.TargetID, r.sched.Now())
	}
}

// Package network implements the unidirectional network-link runtime:
// stochastic latency, drop probability, an additive time-windowed "spike,"
// and a live in-flight gauge.
package network

import (
	"fmt"
	"math/rand"

	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/request"
	"github.com/AsyncFlow-Sim/AsyncFlow/sampler"
	"github.com/AsyncFlow-Sim/AsyncFlow/trace"
)

// Edge is the immutable, validated configuration of a link.
type Edge struct {
	ID          string
	Source      string
	Target      string
	Latency     sampler.RVConfig
	DropoutRate float64
}

// Validate checks the Edge invariants not already covered by RVConfig:
// source ≠ target and dropout_rate ∈ [0,1].
func (e Edge) Validate(fieldPath string) error {
	if e.Source == e.Target {
		return fmt.Errorf("%s: source and target must differ (both %q)", fieldPath, e.Source)
	}
	if e.DropoutRate < 0 || e.DropoutRate > 1 {
		return fmt.Errorf("%s: dropout_rate must be in [0,1], got %v", fieldPath, e.DropoutRate)
	}
	return e.Latency.Validate(fieldPath + ".latency")
}

// Runtime is the live state of an Edge for the duration of a run:
// in-flight gauge and the current additive spike value. spikeS is mutated
// only by the event-injection runtime; reads by concurrent transports take
// a snapshot at dispatch time, so later mutations never retroactively
// change an in-flight transport's delay.
type Runtime struct {
	Edge        Edge
	TargetInbox *engine.Store

	InFlight int
	spikeS   float64

	sched *engine.Scheduler
	rng   *rand.Rand
	trace *trace.SimulationTrace
}

// NewRuntime creates an edge runtime delivering into targetInbox.
func NewRuntime(edge Edge, targetInbox *engine.Store, sched *engine.Scheduler, rng *rand.Rand, tr *trace.SimulationTrace) *Runtime {
	return &Runtime{Edge: edge, TargetInbox: targetInbox, sched: sched, rng: rng, trace: tr}
}

// SpikeS returns the edge's current additive spike value (never mutated
// outside AdjustSpike).
func (r *Runtime) SpikeS() float64 { return r.spikeS }

// AdjustSpike adds delta to the live spike value. Called by the
// event-injection runtime at a spike's start (+magnitude) and end
// (-magnitude); overlapping spikes sum.
func (r *Runtime) AdjustSpike(delta float64) {
	r.spikeS += delta
}

// Transport spawns a transport task for state:
//  1. draw u~U[0,1); if u < dropout_rate, record a dropped hop and discard.
//  2. otherwise increment in_flight, draw latency, add the current spike
//     snapshot, and suspend for d+spike.
//  3. on resume, record a network hop and deliver via Put; decrement
//     in_flight after delivery.
func (r *Runtime) Transport(state *request.State) {
	u := r.rng.Float64()
	if u < r.Edge.DropoutRate {
		state.RecordHop(request.Network, r.Edge.ID+"#dropped", r.sched.Now())
		if r.trace != nil {
			r.trace.RecordDrop(trace.DropRecord{RequestID: state.ID, Clock: r.sched.Now(), EdgeID: r.Edge.ID})
		}
		return
	}

	r.InFlight++
	d := r.Edge.Latency.Sample(r.rng)
	spikeAtDispatch := r.spikeS
	delay := d + spikeAtDispatch

	r.sched.Schedule(r.sched.Now()+delay, engine.EventTypeGeneric, func() {
		state.RecordHop(request.Network, r.Edge.ID, r.sched.Now())
		r.TargetInbox.Put(state)
		r.InFlight--
	})
}

package events

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
	"github.com/AsyncFlow-Sim/AsyncFlow/routing"
	"github.com/AsyncFlow-Sim/AsyncFlow/sampler"
)

func TestInjection_Validate_RejectsBadTimeWindow(t *testing.T) {
	inj := Injection{Kind: KindEdgeSpike, TStart: 5, TEnd: 2, SpikeS: 1}
	assert.Error(t, inj.Validate("event", 10))
}

func TestInjection_Validate_RejectsSpikeWithoutSpikeS(t *testing.T) {
	inj := Injection{Kind: KindEdgeSpike, TStart: 0, TEnd: 5, SpikeS: 0}
	assert.Error(t, inj.Validate("event", 10))
}

func TestInjection_Validate_RejectsEndPastHorizon(t *testing.T) {
	inj := Injection{Kind: KindServerOutage, TStart: 0, TEnd: 11, SpikeS: 0}
	assert.Error(t, inj.Validate("event", 10))
}

func TestInjection_Validate_AllowsEndExactlyAtHorizon(t *testing.T) {
	inj := Injection{Kind: KindServerOutage, TStart: 0, TEnd: 10, SpikeS: 0}
	assert.NoError(t, inj.Validate("event", 10))
}

func newSpikeTestEdge(t *testing.T, sched *engine.Scheduler, id string) *network.Runtime {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	return network.NewRuntime(
		network.Edge{ID: id, Source: "a", Target: "b", Latency: sampler.RVConfig{Mean: 1, Distribution: sampler.Uniform}},
		engine.NewStore(sched), sched, rng, nil,
	)
}

func TestRuntime_EdgeSpike_AppliesAndReverts(t *testing.T) {
	sched := engine.NewScheduler(100)
	edge := newSpikeTestEdge(t, sched, "e1")
	edgesByID := map[string]*network.Runtime{"e1": edge}

	injections := []Injection{{EventID: "ev1", TargetID: "e1", Kind: KindEdgeSpike, TStart: 2, TEnd: 5, SpikeS: 10}}
	rt := NewRuntime(injections, edgesByID, nil, sched)
	rt.Start()

	sched.Schedule(3, engine.EventTypeGeneric, func() {
		assert.Equal(t, 10.0, edge.SpikeS())
	})
	sched.Schedule(6, engine.EventTypeGeneric, func() {
		assert.Equal(t, 0.0, edge.SpikeS())
	})

	sched.Run()
}

func TestRuntime_SuperposedSpikesSumAndReleaseIndependently(t *testing.T) {
	sched := engine.NewScheduler(100)
	edge := newSpikeTestEdge(t, sched, "e1")
	edgesByID := map[string]*network.Runtime{"e1": edge}

	injections := []Injection{
		{EventID: "a", TargetID: "e1", Kind: KindEdgeSpike, TStart: 1, TEnd: 5, SpikeS: 0.3},
		{EventID: "b", TargetID: "e1", Kind: KindEdgeSpike, TStart: 2, TEnd: 3, SpikeS: 0.2},
	}
	rt := NewRuntime(injections, edgesByID, nil, sched)
	rt.Start()

	sched.Schedule(2.5, engine.EventTypeGeneric, func() {
		assert.InDelta(t, 0.5, edge.SpikeS(), 1e-12, "both intervals active over [2,3)")
	})
	sched.Schedule(3.5, engine.EventTypeGeneric, func() {
		assert.InDelta(t, 0.3, edge.SpikeS(), 1e-12, "only event a active over [3,5)")
	})
	sched.Schedule(5.5, engine.EventTypeGeneric, func() {
		assert.InDelta(t, 0.0, edge.SpikeS(), 1e-12, "both intervals released")
	})

	sched.Run()
}

func TestRuntime_ServerOutage_RemovesThenRestoresEdge(t *testing.T) {
	sched := engine.NewScheduler(100)
	edge := newSpikeTestEdge(t, sched, "lb-to-srv1")

	edges := routing.NewOrderedEdgeMap()
	edges.Insert("lb-to-srv1", edge)
	edge.Edge.Target = "srv1"

	lbInbox := engine.NewStore(sched)
	lb := routing.NewRuntime(routing.LoadBalancer{ID: "lb1", Policy: routing.RoundRobin}, edges, lbInbox, sched, nil)

	edgesByID := map[string]*network.Runtime{"lb-to-srv1": edge}
	injections := []Injection{{EventID: "outage1", TargetID: "srv1", Kind: KindServerOutage, TStart: 2, TEnd: 5}}
	rt := NewRuntime(injections, edgesByID, []*routing.Runtime{lb}, sched)
	rt.Start()

	sched.Schedule(3, engine.EventTypeGeneric, func() {
		assert.Equal(t, 0, edges.Len(), "edge must be removed during the outage")
	})
	sched.Schedule(6, engine.EventTypeGeneric, func() {
		assert.Equal(t, 1, edges.Len(), "edge must be restored after the outage ends")
	})

	sched.Run()
}

func TestRuntime_EdgesAffected_TracksSpikeTargets(t *testing.T) {
	injections := []Injection{
		{EventID: "ev1", TargetID: "e1", Kind: KindEdgeSpike, TStart: 0, TEnd: 1, SpikeS: 1},
		{EventID: "ev2", TargetID: "srv1", Kind: KindServerOutage, TStart: 0, TEnd: 1},
	}
	rt := NewRuntime(injections, map[string]*network.Runtime{}, nil, engine.NewScheduler(10))

	assert.True(t, rt.EdgesAffected()["e1"])
	assert.False(t, rt.EdgesAffected()["srv1"])
}

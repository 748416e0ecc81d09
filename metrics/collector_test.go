package metrics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AsyncFlow-Sim/AsyncFlow/compute"
	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
	"github.com/AsyncFlow-Sim/AsyncFlow/sampler"
)

func TestCollector_FirstSampleNeverAtZero(t *testing.T) {
	sched := engine.NewScheduler(10)
	rng := rand.New(rand.NewSource(1))
	edge := network.NewRuntime(
		network.Edge{ID: "e1", Source: "a", Target: "b", Latency: sampler.RVConfig{Mean: 1, Distribution: sampler.Uniform}},
		engine.NewStore(sched), sched, rng, nil,
	)
	enabled := map[string]bool{MetricEdgeInFlight: true}
	c := NewCollector(2, enabled, map[string]*network.Runtime{"e1": edge}, nil, sched)
	c.Start()

	sched.Run()

	series := c.Values[MetricEdgeInFlight]["e1"]
	assert.Equal(t, 4, len(series), "ticks at t=2,4,6,8 within a horizon of 10")
}

func TestCollector_OnlyRecordsEnabledMetrics(t *testing.T) {
	sched := engine.NewScheduler(5)
	server := compute.NewRuntime(
		compute.Server{ID: "s1", CPUCores: 1, RAMMB: 10, Endpoints: []compute.Endpoint{{ID: "ep", Steps: []compute.Step{{Kind: compute.StepCPU, Value: 1}}}}},
		engine.NewStore(sched), nil, sched, rand.New(rand.NewSource(1)),
	)
	enabled := map[string]bool{MetricServerReadyQ: true}
	c := NewCollector(1, enabled, nil, map[string]*compute.Runtime{"s1": server}, sched)
	c.Start()

	sched.Run()

	assert.NotEmpty(t, c.Values[MetricServerReadyQ])
	assert.Empty(t, c.Values[MetricServerRAMUsed])
	assert.Empty(t, c.Values[MetricServerIOQ])
}

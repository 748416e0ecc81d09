package client

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
	"github.com/AsyncFlow-Sim/AsyncFlow/request"
	"github.com/AsyncFlow-Sim/AsyncFlow/sampler"
)

func newTestClientRuntime(t *testing.T, sched *engine.Scheduler, onComplete func(*request.State)) (*Runtime, *engine.Store) {
	t.Helper()
	outInbox := engine.NewStore(sched)
	rng := rand.New(rand.NewSource(1))
	outEdge := network.NewRuntime(
		network.Edge{ID: "out", Source: "c1", Target: "next", Latency: sampler.RVConfig{Mean: 0, Distribution: sampler.Exponential}},
		outInbox, sched, rng, nil,
	)
	rt := NewRuntime(Client{ID: "c1"}, outEdge, sched, onComplete)
	return rt, outInbox
}

func TestRuntime_FirstVisitForwardsOutbound(t *testing.T) {
	sched := engine.NewScheduler(1000)
	rt, outInbox := newTestClientRuntime(t, sched, nil)
	rt.Start()

	req := request.New(1, 0)
	req.RecordHop(request.Generator, "gen", 0)
	rt.Inbox.Put(req)

	sched.Run()

	assert.Equal(t, 1, outInbox.Len())
	assert.Equal(t, 0, rt.Completed.Len())
}

func TestRuntime_ReturnVisitFinishesAndInvokesOnComplete(t *testing.T) {
	sched := engine.NewScheduler(1000)
	var completed *request.State
	rt, _ := newTestClientRuntime(t, sched, func(r *request.State) { completed = r })
	rt.Start()

	req := request.New(1, 0)
	req.RecordHop(request.Generator, "gen", 0)
	req.RecordHop(request.Client, "c1", 0) // first visit already recorded
	req.RecordHop(request.Server, "srv1", 1)
	rt.Inbox.Put(req)

	sched.Run()

	assert.Equal(t, 1, rt.Completed.Len())
	assert.NotNil(t, completed)
	assert.True(t, completed.Finished)
	assert.Equal(t, req.ID, completed.ID)
}

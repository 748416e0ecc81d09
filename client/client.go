// Package client implements the client runtime: a single forwarder task
// acting as both the sending side (first visit, forwards toward the
// LB/server) and the receiving side (return visit, stamps finish time and
// pushes to the completion store) of the round trip.
package client

import (
	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
	"github.com/AsyncFlow-Sim/AsyncFlow/request"
)

// Client is the immutable configuration of a client node.
type Client struct {
	ID string
}

// Runtime is the live state of a Client for a run.
type Runtime struct {
	Client    Client
	Inbox     *engine.Store
	Completed *engine.Store
	OutEdge   *network.Runtime

	sched      *engine.Scheduler
	onComplete func(*request.State)
}

// NewRuntime creates a client runtime. onComplete, if non-nil, is invoked
// once per completed request (after it has been pushed to Completed),
// letting the metrics/analyzer layer record a per-event latency sample
// without the client needing to know about metrics.
func NewRuntime(client Client, outEdge *network.Runtime, sched *engine.Scheduler, onComplete func(*request.State)) *Runtime {
	return &Runtime{
		Client:     client,
		Inbox:      engine.NewStore(sched),
		Completed:  engine.NewStore(sched),
		OutEdge:    outEdge,
		sched:      sched,
		onComplete: onComplete,
	}
}

// Start begins the forwarder loop.
func (r *Runtime) Start() {
	r.acceptNext()
}

func (r *Runtime) acceptNext() {
	r.Inbox.Get(func(v interface{}) {
		req := v.(*request.State)
		r.handle(req)
		r.acceptNext()
	})
}

func (r *Runtime) handle(req *request.State) {
	req.RecordHop(request.Client, r.Client.ID, r.sched.Now())

	if req.IsFirstVisitToClient() {
		r.OutEdge.Transport(req)
		return
	}

	req.Finish(r.sched.Now())
	r.Completed.Put(req)
	if r.onComplete != nil {
		r.onComplete(req)
	}
}

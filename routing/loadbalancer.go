// Package routing implements the load-balancer runtime: a single-threaded
// forwarder that, for each inbox message, selects one outbound edge by
// policy using the current ordered mapping of available edges.
package routing

import (
	"fmt"

	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/request"
	"github.com/AsyncFlow-Sim/AsyncFlow/trace"
)

// Policy names a load-balancing algorithm.
type Policy string

const (
	RoundRobin       Policy = "round_robin"
	LeastConnections Policy = "least_connections"
)

// LoadBalancer is the immutable configuration of an LB node.
type LoadBalancer struct {
	ID      string
	Policy  Policy
	Covered map[string]bool // server IDs this LB fronts
}

// Validate checks that policy is recognized.
func (lb LoadBalancer) Validate(fieldPath string) error {
	switch lb.Policy {
	case RoundRobin, LeastConnections:
	default:
		return fmt.Errorf("%s: unknown policy %q", fieldPath, lb.Policy)
	}
	return nil
}

// Runtime is the live state of a LoadBalancer for a run: its ordered
// outbound-edge mapping (out_edges) and round-robin cursor.
type Runtime struct {
	LB       LoadBalancer
	Edges    *OrderedEdgeMap
	RRCursor int

	Inbox *engine.Store
	sched *engine.Scheduler
	trace *trace.SimulationTrace

	suspended bool // true while Edges is empty and the forwarder is parked

	// pending holds requests already popped from Inbox that found Edges
	// empty at dispatch time — e.g. an outage emptied the edge set while
	// this forwarder was blocked inside Inbox.Get, between pop and
	// dispatch. They are not back in Inbox, so NotifyEdgesChanged must
	// drain this slice itself once an edge is restored.
	pending []*request.State
}

// NewRuntime creates an LB runtime. edges should already be populated with
// the LB's initial out_edges in topology declaration order.
func NewRuntime(lb LoadBalancer, edges *OrderedEdgeMap, inbox *engine.Store, sched *engine.Scheduler, tr *trace.SimulationTrace) *Runtime {
	return &Runtime{LB: lb, Edges: edges, Inbox: inbox, sched: sched, trace: tr}
}

// Start begins the forwarder loop.
func (r *Runtime) Start() {
	r.tryAccept()
}

// tryAccept blocks on the inbox unless out_edges is currently empty, in
// which case it parks (NotifyEdgesChanged resumes it once an edge is
// restored). Requests accumulate in the LB inbox until at least one edge
// is available again; no conditional Store primitive is needed.
func (r *Runtime) tryAccept() {
	if r.Edges.Len() == 0 {
		r.suspended = true
		return
	}
	r.suspended = false
	r.Inbox.Get(func(v interface{}) {
		req := v.(*request.State)
		r.forward(req)
		r.tryAccept()
	})
}

// NotifyEdgesChanged must be called by the event-injection runtime after
// any Insert/Remove on Edges, so a parked forwarder can resume once at
// least one edge exists again. It also drains any requests stashed in
// pending — forward() calls whose Edges went empty after Inbox.Get had
// already handed them a request.
func (r *Runtime) NotifyEdgesChanged() {
	if r.Edges.Len() == 0 {
		return
	}
	if len(r.pending) > 0 {
		pending := r.pending
		r.pending = nil
		for _, req := range pending {
			r.dispatch(req)
		}
	}
	if r.suspended {
		r.tryAccept()
	}
}

func (r *Runtime) forward(req *request.State) {
	req.RecordHop(request.LB, r.LB.ID, r.sched.Now())
	r.dispatch(req)
}

// dispatch selects an edge and routes req, or — if Edges went empty after
// this request already left Inbox (a race between an outage's edge
// removal and an in-flight Inbox.Get) — stashes it in pending until
// NotifyEdgesChanged fires.
func (r *Runtime) dispatch(req *request.State) {
	if r.Edges.Len() == 0 {
		r.pending = append(r.pending, req)
		return
	}

	targetID := r.selectTarget()
	edge := r.Edges.Get(targetID)

	if r.trace != nil {
		r.trace.RecordRouting(trace.RoutingRecord{
			RequestID:      req.ID,
			Clock:          r.sched.Now(),
			LoadBalancerID: r.LB.ID,
			ChosenEdge:     targetID,
		})
	}

	edge.Transport(req)
}

// selectTarget applies the configured policy to the current edge set.
func (r *Runtime) selectTarget() string {
	ids := r.Edges.IDs()
	switch r.LB.Policy {
	case RoundRobin:
		target := ids[r.RRCursor%len(ids)]
		r.RRCursor++
		return target

	case LeastConnections:
		best := ids[0]
		bestLoad := r.Edges.Get(best).InFlight
		for _, id := range ids[1:] {
			load := r.Edges.Get(id).InFlight
			if load < bestLoad {
				bestLoad = load
				best = id
			}
		}
		return best

	default:
		panic(fmt.Sprintf("routing: unhandled policy %q", r.LB.Policy))
	}
}

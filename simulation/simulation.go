// Package simulation wires a validated scenario.Scenario into a live
// topology of runtimes and drives it to completion on an engine.Scheduler.
package simulation

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/AsyncFlow-Sim/AsyncFlow/analyzer"
	"github.com/AsyncFlow-Sim/AsyncFlow/client"
	"github.com/AsyncFlow-Sim/AsyncFlow/compute"
	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/events"
	"github.com/AsyncFlow-Sim/AsyncFlow/metrics"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
	"github.com/AsyncFlow-Sim/AsyncFlow/routing"
	"github.com/AsyncFlow-Sim/AsyncFlow/scenario"
	"github.com/AsyncFlow-Sim/AsyncFlow/trace"
	"github.com/AsyncFlow-Sim/AsyncFlow/workload"
)

// Result is everything a caller needs after a run completes: the analyzer
// (per-request latencies and summary stats), the sampled metric series,
// and the decision trace (routing/drop history).
type Result struct {
	Analyzer *analyzer.Analyzer
	Trace    *trace.SimulationTrace
}

// Run builds the full topology described by sc, drives it to sc's horizon
// with the given master seed, and returns the accumulated results. sc must
// already have passed Validate.
func Run(sc *scenario.Scenario, seed int64) (*Result, error) {
	sched := engine.NewScheduler(sc.SimSettings.TotalSimulationTime)
	rngs := engine.NewPartitionedRNG(seed)
	tr := trace.NewSimulationTrace()

	b := &builder{sc: sc, sched: sched, rngs: rngs, trace: tr}
	if err := b.build(); err != nil {
		return nil, err
	}

	b.client.Start()
	for _, srv := range b.servers {
		srv.Start()
	}
	if b.lb != nil {
		b.lb.Start()
	}
	b.generator.Start()
	b.collector.Start()
	b.injector.Start()

	logrus.Infof("simulation: running to horizon=%vs (seed=%d)", sc.SimSettings.TotalSimulationTime, seed)
	sched.Run()
	logrus.Infof("simulation: completed %d requests", len(b.analyzer.Records))

	b.analyzer.AttachSeries(b.collector.Values)
	return &Result{Analyzer: b.analyzer, Trace: tr}, nil
}

// builder assembles runtimes in dependency order. The client is created
// first so edges targeting it can resolve its Inbox; its OutEdge is set
// once the edges exist. Every other component's outbound edge exists before
// that component is constructed.
type builder struct {
	sc    *scenario.Scenario
	sched *engine.Scheduler
	rngs  *engine.PartitionedRNG
	trace *trace.SimulationTrace

	edgesByID   map[string]*network.Runtime
	servers     map[string]*compute.Runtime
	serverInbox map[string]*engine.Store
	lbInbox     map[string]*engine.Store
	client      *client.Runtime
	lb          *routing.Runtime
	generator   *workload.Runtime
	injector    *events.Runtime
	collector   *metrics.Collector
	analyzer    *analyzer.Analyzer
}

func (b *builder) build() error {
	b.edgesByID = make(map[string]*network.Runtime)
	b.servers = make(map[string]*compute.Runtime)
	b.serverInbox = make(map[string]*engine.Store)
	b.lbInbox = make(map[string]*engine.Store)
	enabledEvents := make(map[string]bool)
	for _, name := range b.sc.SimSettings.EnabledEventMetrics {
		enabledEvents[name] = true
	}
	b.analyzer = analyzer.NewAnalyzer(enabledEvents)

	b.client = client.NewRuntime(
		client.Client{ID: b.sc.TopologyGraph.Nodes.Client.ID},
		nil, // set below, once we know the client's outbound edge
		b.sched,
		b.analyzer.RecordCompletion,
	)

	// Build every edge, targeting whichever inbox its Target node exposes.
	for _, e := range b.sc.TopologyGraph.Edges {
		inbox, err := b.inboxFor(e.Target)
		if err != nil {
			return fmt.Errorf("topology_graph.edges: %w", err)
		}
		rng := b.rngs.ForEntity(engine.SubsystemEdge, e.ID)
		rt := network.NewRuntime(e.ToEdge(), inbox, b.sched, rng, b.trace)
		b.edgesByID[e.ID] = rt
	}

	// The client's own outbound edge is whichever edge has the client as
	// its source.
	clientOutEdge, err := b.edgeFromSource(b.sc.TopologyGraph.Nodes.Client.ID)
	if err != nil {
		return err
	}
	b.client.OutEdge = clientOutEdge

	for _, srv := range b.sc.TopologyGraph.Nodes.Servers {
		outEdge, err := b.edgeFromSource(srv.ID)
		if err != nil {
			return err
		}
		rng := b.rngs.ForEntity(engine.SubsystemServer, srv.ID)
		rt := compute.NewRuntime(srv.ToServer(), b.serverInboxFor(srv.ID), outEdge, b.sched, rng)
		b.servers[srv.ID] = rt
	}

	if lbSpec := b.sc.TopologyGraph.Nodes.LoadBalancer; lbSpec != nil {
		edges := routing.NewOrderedEdgeMap()
		for _, e := range b.sc.TopologyGraph.Edges {
			if e.Source == lbSpec.ID {
				edges.Insert(e.ID, b.edgesByID[e.ID])
			}
		}
		b.lb = routing.NewRuntime(lbSpec.ToLoadBalancer(), edges, b.lbInboxFor(lbSpec.ID), b.sched, b.trace)
	}

	genRng := b.rngs.ForSubsystem(engine.SubsystemGenerator)
	genOutEdge, err := b.edgeFromSource(b.sc.RqsInput.ID)
	if err != nil {
		return err
	}
	b.generator = workload.NewRuntime(b.sc.RqsInput.ToGeneratorConfig(), genOutEdge, b.sched, genRng)

	var lbRuntimes []*routing.Runtime
	if b.lb != nil {
		lbRuntimes = []*routing.Runtime{b.lb}
	}
	injections := make([]events.Injection, len(b.sc.Events))
	for i, ev := range b.sc.Events {
		injections[i] = ev.ToInjection()
	}
	b.injector = events.NewRuntime(injections, b.edgesByID, lbRuntimes, b.sched)

	enabled := make(map[string]bool)
	for _, name := range b.sc.SimSettings.EnabledSampleMetrics {
		enabled[name] = true
	}
	b.collector = metrics.NewCollector(b.sc.SimSettings.SamplePeriodS, enabled, b.edgesByID, b.servers, b.sched)

	return nil
}

// serverInboxFor and lbInboxFor lazily allocate and memoize the Store a
// server/LB node listens on, since edges are built (and need to resolve
// their target's inbox) before the components they target are constructed.
func (b *builder) serverInboxFor(id string) *engine.Store {
	if store, ok := b.serverInbox[id]; ok {
		return store
	}
	store := engine.NewStore(b.sched)
	b.serverInbox[id] = store
	return store
}

func (b *builder) lbInboxFor(id string) *engine.Store {
	if store, ok := b.lbInbox[id]; ok {
		return store
	}
	store := engine.NewStore(b.sched)
	b.lbInbox[id] = store
	return store
}

// inboxFor resolves targetID to the Store that component listens on. The
// client owns its own Inbox (allocated by client.NewRuntime); servers and
// the LB each own a Store memoized via serverInboxFor/lbInboxFor.
func (b *builder) inboxFor(targetID string) (*engine.Store, error) {
	if targetID == b.sc.TopologyGraph.Nodes.Client.ID {
		return b.client.Inbox, nil
	}
	if lb := b.sc.TopologyGraph.Nodes.LoadBalancer; lb != nil && targetID == lb.ID {
		return b.lbInboxFor(targetID), nil
	}
	for _, srv := range b.sc.TopologyGraph.Nodes.Servers {
		if srv.ID == targetID {
			return b.serverInboxFor(targetID), nil
		}
	}
	return nil, fmt.Errorf("no node %q to route to (should have been caught by scenario.Validate)", targetID)
}

func (b *builder) edgeFromSource(sourceID string) (*network.Runtime, error) {
	for _, e := range b.sc.TopologyGraph.Edges {
		if e.Source == sourceID {
			return b.edgesByID[e.ID], nil
		}
	}
	return nil, fmt.Errorf("no outbound edge declared for source %q", sourceID)
}

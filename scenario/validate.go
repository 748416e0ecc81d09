package scenario

import (
	"fmt"
	"sort"

	"github.com/AsyncFlow-Sim/AsyncFlow/events"
)

// ValidationError is one field-scoped validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failure found by Validate, rather than
// stopping at the first one, so a caller can report all problems in one
// pass before exiting.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, ve := range e {
		msg += "\n  - " + ve.Error()
	}
	return msg
}

func (e *ValidationErrors) add(field, format string, args ...interface{}) {
	*e = append(*e, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks every cross-cutting rule: unique IDs, edge endpoint
// existence, LB coverage, event well-formedness, and the "not all servers
// down simultaneously" invariant. Returns nil if the scenario is valid,
// otherwise a non-empty ValidationErrors.
func (s *Scenario) Validate() error {
	var errs ValidationErrors

	nodeIDs := s.collectNodeIDs(&errs)
	edgeIDs := s.validateEdges(&errs, nodeIDs)
	s.validateServers(&errs)
	s.validateLoadBalancer(&errs, nodeIDs, edgeIDs)
	s.validateGenerator(&errs)
	s.validateSimSettings(&errs)
	s.validateEvents(&errs, edgeIDs, nodeIDs)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// collectNodeIDs gathers client/server/LB IDs and flags duplicates.
func (s *Scenario) collectNodeIDs(errs *ValidationErrors) map[string]bool {
	seen := make(map[string]bool)
	claim := func(field, id string) {
		if id == "" {
			return
		}
		if seen[id] {
			errs.add(field, "duplicate node id %q", id)
			return
		}
		seen[id] = true
	}

	claim("topology_graph.nodes.client", s.TopologyGraph.Nodes.Client.ID)
	for i, srv := range s.TopologyGraph.Nodes.Servers {
		claim(fmt.Sprintf("topology_graph.nodes.servers[%d]", i), srv.ID)
	}
	if lb := s.TopologyGraph.Nodes.LoadBalancer; lb != nil {
		claim("topology_graph.nodes.load_balancer", lb.ID)
	}
	return seen
}

// validateEdges checks edge ID uniqueness, source≠target, that every
// target resolves to a declared node, and that external sources (IDs not
// themselves declared as nodes, e.g. the generator) are only ever used as
// a source, never a target.
func (s *Scenario) validateEdges(errs *ValidationErrors, nodeIDs map[string]bool) map[string]bool {
	edgeIDs := make(map[string]bool)
	for i, e := range s.TopologyGraph.Edges {
		field := fmt.Sprintf("topology_graph.edges[%d]", i)
		if e.ID == "" {
			errs.add(field, "edge requires an id")
		} else if edgeIDs[e.ID] {
			errs.add(field, "duplicate edge id %q", e.ID)
		} else {
			edgeIDs[e.ID] = true
		}
		if e.Source == e.Target {
			errs.add(field, "source and target must differ (both %q)", e.Source)
		}
		if !nodeIDs[e.Target] {
			errs.add(field, "target %q is not a declared node (external sources may only be edge sources)", e.Target)
		}
		if err := e.ToEdge().Validate(field); err != nil {
			errs.add(field, "%v", err)
		}
	}
	return edgeIDs
}

func (s *Scenario) validateServers(errs *ValidationErrors) {
	for i, srv := range s.TopologyGraph.Nodes.Servers {
		field := fmt.Sprintf("topology_graph.nodes.servers[%d]", i)
		if err := srv.ToServer().Validate(field); err != nil {
			errs.add(field, "%v", err)
		}
	}
}

// validateLoadBalancer checks that every server the LB claims to cover has
// a corresponding LB→server edge.
func (s *Scenario) validateLoadBalancer(errs *ValidationErrors, nodeIDs, edgeIDs map[string]bool) {
	lb := s.TopologyGraph.Nodes.LoadBalancer
	if lb == nil {
		return
	}
	field := "topology_graph.nodes.load_balancer"
	if err := lb.ToLoadBalancer().Validate(field); err != nil {
		errs.add(field, "%v", err)
	}

	coveredByEdge := make(map[string]bool)
	for _, e := range s.TopologyGraph.Edges {
		if e.Source == lb.ID {
			coveredByEdge[e.Target] = true
		}
	}
	for _, srv := range lb.ServerCovered {
		if !nodeIDs[srv] {
			errs.add(field, "server_covered %q is not a declared server", srv)
			continue
		}
		if !coveredByEdge[srv] {
			errs.add(field, "server_covered %q has no corresponding %s→%s edge", srv, lb.ID, srv)
		}
	}
}

func (s *Scenario) validateGenerator(errs *ValidationErrors) {
	if err := s.RqsInput.ToGeneratorConfig().Validate("rqs_input"); err != nil {
		errs.add("rqs_input", "%v", err)
	}
}

func (s *Scenario) validateSimSettings(errs *ValidationErrors) {
	if s.SimSettings.TotalSimulationTime <= 0 {
		errs.add("sim_settings.total_simulation_time", "must be > 0, got %v", s.SimSettings.TotalSimulationTime)
	}
	if s.SimSettings.SamplePeriodS <= 0 {
		errs.add("sim_settings.sample_period_s", "must be > 0, got %v", s.SimSettings.SamplePeriodS)
	}
}

// validateEvents checks event ID uniqueness, target/family coherence, the
// per-event time-window rule, and the "never all servers down at once"
// invariant.
func (s *Scenario) validateEvents(errs *ValidationErrors, edgeIDs, nodeIDs map[string]bool) {
	seen := make(map[string]bool)
	serverIDs := make(map[string]bool)
	for _, srv := range s.TopologyGraph.Nodes.Servers {
		serverIDs[srv.ID] = true
	}

	horizon := s.SimSettings.TotalSimulationTime

	for i, ev := range s.Events {
		field := fmt.Sprintf("events[%d]", i)
		if ev.EventID == "" {
			errs.add(field, "event requires an event_id")
		} else if seen[ev.EventID] {
			errs.add(field, "duplicate event_id %q", ev.EventID)
		} else {
			seen[ev.EventID] = true
		}

		startFam, isStart, startOK := eventKind(ev.Start.Kind)
		endFam, endIsStart, endOK := eventKind(ev.End.Kind)
		if !startOK {
			errs.add(field+".start.kind", "unknown kind %q", ev.Start.Kind)
		} else if !isStart {
			errs.add(field+".start.kind", "%q is an end marker, not a start marker", ev.Start.Kind)
		}
		if !endOK {
			errs.add(field+".end.kind", "unknown kind %q", ev.End.Kind)
		} else if endIsStart {
			errs.add(field+".end.kind", "%q is a start marker, not an end marker", ev.End.Kind)
		}
		if startOK && endOK && startFam != endFam {
			errs.add(field, "start kind %q and end kind %q belong to different families", ev.Start.Kind, ev.End.Kind)
		}
		if !startOK || !endOK {
			continue
		}

		inj := ev.ToInjection()
		if err := inj.Validate(field, horizon); err != nil {
			errs.add(field, "%v", err)
		}

		switch inj.Kind {
		case events.KindEdgeSpike:
			if !edgeIDs[ev.TargetID] {
				errs.add(field, "edge_spike target_id %q is not a declared edge", ev.TargetID)
			}
		case events.KindServerOutage:
			if !serverIDs[ev.TargetID] {
				errs.add(field, "server_outage target_id %q is not a declared server", ev.TargetID)
			}
		}
	}

	s.validateNoTotalOutage(errs, len(s.TopologyGraph.Nodes.Servers))
}

type outageBoundary struct {
	t      float64
	isEnd  bool // ends processed before starts at an equal timestamp
	server string
}

// validateNoTotalOutage sweeps every server_outage injection's [t_start,
// t_end) interval and rejects a scenario where, at any instant, every
// server is simultaneously down — the system would have nowhere to route
// requests. End boundaries are processed before start boundaries at
// equal timestamps, mirroring the live runtime's own END-before-START
// tie-break (engine.EventTypeInjectionEnd < EventTypeInjectionStart).
func (s *Scenario) validateNoTotalOutage(errs *ValidationErrors, totalServers int) {
	if totalServers == 0 {
		return
	}

	var bounds []outageBoundary
	for _, ev := range s.Events {
		inj := ev.ToInjection()
		if inj.Kind != events.KindServerOutage {
			continue
		}
		bounds = append(bounds, outageBoundary{t: inj.TStart, isEnd: false, server: inj.TargetID})
		bounds = append(bounds, outageBoundary{t: inj.TEnd, isEnd: true, server: inj.TargetID})
	}
	if len(bounds) == 0 {
		return
	}

	sort.SliceStable(bounds, func(i, j int) bool {
		if bounds[i].t != bounds[j].t {
			return bounds[i].t < bounds[j].t
		}
		return bounds[i].isEnd && !bounds[j].isEnd
	})

	down := make(map[string]bool)
	downCount := 0
	i := 0
	for i < len(bounds) {
		t := bounds[i].t
		for i < len(bounds) && bounds[i].t == t {
			b := bounds[i]
			if b.isEnd {
				if down[b.server] {
					down[b.server] = false
					downCount--
				}
			} else {
				if !down[b.server] {
					down[b.server] = true
					downCount++
				}
			}
			i++
		}
		if downCount == totalServers {
			errs.add("events", "all %d servers are simultaneously down at t=%v", totalServers, t)
			return
		}
	}
}

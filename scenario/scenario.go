// Package scenario defines AsyncFlow's external scenario schema: the
// declarative topology, generator, simulation settings, and event
// injections that a run is built from, loaded from YAML via
// gopkg.in/yaml.v3.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AsyncFlow-Sim/AsyncFlow/compute"
	"github.com/AsyncFlow-Sim/AsyncFlow/events"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
	"github.com/AsyncFlow-Sim/AsyncFlow/routing"
	"github.com/AsyncFlow-Sim/AsyncFlow/sampler"
	"github.com/AsyncFlow-Sim/AsyncFlow/workload"
)

// RVConfigSpec mirrors sampler.RVConfig with YAML tags.
type RVConfigSpec struct {
	Mean         float64  `yaml:"mean"`
	Distribution string   `yaml:"distribution"`
	Variance     *float64 `yaml:"variance,omitempty"`
}

// ToRVConfig converts to the engine-facing sampler.RVConfig.
func (s RVConfigSpec) ToRVConfig() sampler.RVConfig {
	return sampler.RVConfig{
		Mean:         s.Mean,
		Distribution: sampler.Distribution(s.Distribution),
		Variance:     s.Variance,
	}.Resolve()
}

// RqsInput is the generator configuration.
type RqsInput struct {
	ID                         string       `yaml:"id"`
	AvgActiveUsers             RVConfigSpec `yaml:"avg_active_users"`
	AvgRequestPerMinutePerUser RVConfigSpec `yaml:"avg_request_per_minute_per_user"`
	UserSamplingWindow         float64      `yaml:"user_sampling_window"`
}

// StepSpec mirrors compute.Step.
type StepSpec struct {
	Kind  string  `yaml:"kind"`
	Value float64 `yaml:"value"`
}

// EndpointSpec mirrors compute.Endpoint.
type EndpointSpec struct {
	ID          string     `yaml:"id"`
	Probability float64    `yaml:"probability,omitempty"`
	Steps       []StepSpec `yaml:"steps"`
}

// ServerResources mirrors the server's resources block.
type ServerResources struct {
	CPUCores int `yaml:"cpu_cores"`
	RAMMB    int `yaml:"ram_mb"`
}

// ServerSpec mirrors compute.Server.
type ServerSpec struct {
	ID        string          `yaml:"id"`
	Resources ServerResources `yaml:"resources"`
	Endpoints []EndpointSpec  `yaml:"endpoints"`
}

// ClientSpec mirrors client.Client.
type ClientSpec struct {
	ID string `yaml:"id"`
}

// LoadBalancerSpec mirrors routing.LoadBalancer.
type LoadBalancerSpec struct {
	ID            string   `yaml:"id"`
	Algorithm     string   `yaml:"algorithm"`
	ServerCovered []string `yaml:"server_covered"`
}

// Nodes groups the topology's node declarations.
type Nodes struct {
	Client       ClientSpec        `yaml:"client"`
	Servers      []ServerSpec      `yaml:"servers"`
	LoadBalancer *LoadBalancerSpec `yaml:"load_balancer,omitempty"`
}

// EdgeSpec mirrors network.Edge.
type EdgeSpec struct {
	ID          string       `yaml:"id"`
	Source      string       `yaml:"source"`
	Target      string       `yaml:"target"`
	Latency     RVConfigSpec `yaml:"latency"`
	DropoutRate float64      `yaml:"dropout_rate,omitempty"`
}

// TopologyGraph groups the node and edge declarations.
type TopologyGraph struct {
	Nodes Nodes      `yaml:"nodes"`
	Edges []EdgeSpec `yaml:"edges"`
}

// SimSettings holds the run-level simulation settings.
type SimSettings struct {
	TotalSimulationTime  float64  `yaml:"total_simulation_time"`
	SamplePeriodS        float64  `yaml:"sample_period_s"`
	EnabledSampleMetrics []string `yaml:"enabled_sample_metrics,omitempty"`
	EnabledEventMetrics  []string `yaml:"enabled_event_metrics,omitempty"`
}

// EventStart/EventEnd mirror an event injection's start/end sub-objects.
type EventStart struct {
	Kind   string   `yaml:"kind"`
	TStart float64  `yaml:"t_start"`
	SpikeS *float64 `yaml:"spike_s,omitempty"`
}

type EventEnd struct {
	Kind string  `yaml:"kind"`
	TEnd float64 `yaml:"t_end"`
}

// EventSpec mirrors events.Injection.
type EventSpec struct {
	EventID  string     `yaml:"event_id"`
	TargetID string     `yaml:"target_id"`
	Start    EventStart `yaml:"start"`
	End      EventEnd   `yaml:"end"`
}

// Scenario is the top-level payload.
type Scenario struct {
	RqsInput      RqsInput      `yaml:"rqs_input"`
	TopologyGraph TopologyGraph `yaml:"topology_graph"`
	SimSettings   SimSettings   `yaml:"sim_settings"`
	Events        []EventSpec   `yaml:"events,omitempty"`
}

// Load reads and parses a scenario file. It does not validate; callers
// should call Validate() before building a simulation from it.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %q: %w", path, err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario file %q: %w", path, err)
	}
	return &sc, nil
}

// ToEndpoint converts an EndpointSpec to compute.Endpoint.
func (e EndpointSpec) ToEndpoint() compute.Endpoint {
	steps := make([]compute.Step, len(e.Steps))
	for i, s := range e.Steps {
		steps[i] = compute.Step{Kind: compute.StepKind(s.Kind), Value: s.Value}
	}
	return compute.Endpoint{ID: e.ID, Probability: e.Probability, Steps: steps}
}

// ToServer converts a ServerSpec to compute.Server.
func (s ServerSpec) ToServer() compute.Server {
	endpoints := make([]compute.Endpoint, len(s.Endpoints))
	for i, e := range s.Endpoints {
		endpoints[i] = e.ToEndpoint()
	}
	return compute.Server{ID: s.ID, CPUCores: s.Resources.CPUCores, RAMMB: s.Resources.RAMMB, Endpoints: endpoints}
}

// ToEdge converts an EdgeSpec to network.Edge.
func (e EdgeSpec) ToEdge() network.Edge {
	return network.Edge{ID: e.ID, Source: e.Source, Target: e.Target, Latency: e.Latency.ToRVConfig(), DropoutRate: e.DropoutRate}
}

// ToLoadBalancer converts a LoadBalancerSpec to routing.LoadBalancer.
func (l LoadBalancerSpec) ToLoadBalancer() routing.LoadBalancer {
	covered := make(map[string]bool, len(l.ServerCovered))
	for _, id := range l.ServerCovered {
		covered[id] = true
	}
	return routing.LoadBalancer{ID: l.ID, Policy: routing.Policy(l.Algorithm), Covered: covered}
}

// ToGeneratorConfig converts RqsInput to workload.Config.
func (r RqsInput) ToGeneratorConfig() workload.Config {
	return workload.Config{
		ID:                         r.ID,
		AvgActiveUsers:             r.AvgActiveUsers.ToRVConfig(),
		AvgRequestPerMinutePerUser: r.AvgRequestPerMinutePerUser.ToRVConfig(),
		UserSamplingWindow:         r.UserSamplingWindow,
	}
}

// eventKind resolves a start/end kind marker to its injection family and
// whether it is a start marker. ok is false for unrecognized markers.
func eventKind(kind string) (family events.Kind, start bool, ok bool) {
	switch kind {
	case "spike_start", "edge_spike_start":
		return events.KindEdgeSpike, true, true
	case "spike_end", "edge_spike_end":
		return events.KindEdgeSpike, false, true
	case "server_outage_start", "server_down":
		return events.KindServerOutage, true, true
	case "server_outage_end", "server_up":
		return events.KindServerOutage, false, true
	}
	return "", false, false
}

// ToInjection converts an EventSpec to events.Injection. An unrecognized
// start kind yields an Injection with an empty Kind, which
// events.Injection.Validate rejects; Validate also checks the start/end
// markers agree on family before the injection is ever built for a run.
func (e EventSpec) ToInjection() events.Injection {
	spikeS := 0.0
	if e.Start.SpikeS != nil {
		spikeS = *e.Start.SpikeS
	}
	kind, _, _ := eventKind(e.Start.Kind)
	return events.Injection{
		EventID:  e.EventID,
		TargetID: e.TargetID,
		Kind:     kind,
		TStart:   e.Start.TStart,
		TEnd:     e.End.TEnd,
		SpikeS:   spikeS,
	}
}

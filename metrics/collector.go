// Package metrics implements the sampled-metric collector: a periodic
// task that reads live gauges from edges and servers and appends to time
// series, beginning at t=sample_period_s (never at t=0).
package metrics

import (
	"github.com/AsyncFlow-Sim/AsyncFlow/compute"
	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
)

// Metric names emitted by the collector.
const (
	MetricEdgeInFlight  = "edge_in_flight"
	MetricServerRAMUsed = "server_ram_used"
	MetricServerReadyQ  = "server_ready_q"
	MetricServerIOQ     = "server_io_q"
)

// Series is the sampled time-series store: metric name → entity ID →
// values, time base k·sample_period_s.
type Series map[string]map[string][]float64

// Collector periodically samples the enabled metrics.
type Collector struct {
	Period  float64
	Enabled map[string]bool
	Edges   map[string]*network.Runtime
	Servers map[string]*compute.Runtime

	sched  *engine.Scheduler
	Values Series
}

// NewCollector creates a collector. enabled names which metrics to record;
// a nil/empty set records nothing (the tick loop still runs).
func NewCollector(period float64, enabled map[string]bool, edges map[string]*network.Runtime, servers map[string]*compute.Runtime, sched *engine.Scheduler) *Collector {
	return &Collector{
		Period:  period,
		Enabled: enabled,
		Edges:   edges,
		Servers: servers,
		sched:   sched,
		Values:  make(Series),
	}
}

// Start begins the periodic sampling loop; the first sample lands at
// t=Period, never at t=0.
func (c *Collector) Start() {
	c.scheduleTick(c.Period)
}

func (c *Collector) scheduleTick(t float64) {
	if t >= c.sched.Horizon() {
		return
	}
	c.sched.Schedule(t, engine.EventTypeGeneric, func() {
		c.sample()
		c.scheduleTick(t + c.Period)
	})
}

func (c *Collector) sample() {
	if c.Enabled[MetricEdgeInFlight] {
		for id, e := range c.Edges {
			c.append(MetricEdgeInFlight, id, float64(e.InFlight))
		}
	}
	if c.Enabled[MetricServerRAMUsed] {
		for id, s := range c.Servers {
			c.append(MetricServerRAMUsed, id, float64(s.Server.RAMMB-s.RAM.Level()))
		}
	}
	if c.Enabled[MetricServerReadyQ] {
		for id, s := range c.Servers {
			c.append(MetricServerReadyQ, id, float64(s.ReadyQ))
		}
	}
	if c.Enabled[MetricServerIOQ] {
		for id, s := range c.Servers {
			c.append(MetricServerIOQ, id, float64(s.IOQ))
		}
	}
}

func (c *Collector) append(metric, entity string, v float64) {
	if c.Values[metric] == nil {
		c.Values[metric] = make(map[string][]float64)
	}
	c.Values[metric][entity] = append(c.Values[metric][entity], v)
}

// Package workload implements the generator runtime and its compound
// inter-arrival process: Poisson–Poisson and Gaussian–Poisson
// active-user-driven request generation, running online as a live
// scheduler-driven component rather than pre-generating a request list.
package workload

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
	"github.com/AsyncFlow-Sim/AsyncFlow/request"
	"github.com/AsyncFlow-Sim/AsyncFlow/sampler"
)

const inverseCDFEpsilon = 1e-12

// Config is the immutable configuration of a generator node.
// AvgActiveUsers' Distribution selects the compound process variant:
// Poisson ⇒ Poisson–Poisson, Normal ⇒ Gaussian–Poisson.
type Config struct {
	ID                         string
	AvgActiveUsers             sampler.RVConfig
	AvgRequestPerMinutePerUser sampler.RVConfig // must be Poisson
	UserSamplingWindow         float64          // seconds
}

// Validate checks the generator configuration constraints.
func (c Config) Validate(fieldPath string) error {
	if c.AvgActiveUsers.Distribution != sampler.Poisson && c.AvgActiveUsers.Distribution != sampler.Normal {
		return fmt.Errorf("%s.avg_active_users: distribution must be poisson or normal, got %q", fieldPath, c.AvgActiveUsers.Distribution)
	}
	if c.AvgRequestPerMinutePerUser.Distribution != sampler.Poisson {
		return fmt.Errorf("%s.avg_request_per_minute_per_user: must be poisson, got %q", fieldPath, c.AvgRequestPerMinutePerUser.Distribution)
	}
	if c.UserSamplingWindow <= 0 {
		return fmt.Errorf("%s.user_sampling_window: must be > 0, got %v", fieldPath, c.UserSamplingWindow)
	}
	return nil
}

// Runtime is the live generator: builds a lazy sequence of inter-arrival
// gaps via the sampler layer, materializing a RequestState per gap and
// injecting it into its outbound edge.
type Runtime struct {
	Config  Config
	OutEdge *network.Runtime

	sched  *engine.Scheduler
	rng    *rand.Rand
	nextID int64
}

// NewRuntime creates a generator runtime.
func NewRuntime(cfg Config, outEdge *network.Runtime, sched *engine.Scheduler, rng *rand.Rand) *Runtime {
	return &Runtime{Config: cfg, OutEdge: outEdge, sched: sched, rng: rng, nextID: 1}
}

// Start begins request generation from t=0.
func (r *Runtime) Start() {
	r.runWindow(0)
}

// runWindow samples U for the window starting at windowStart and either
// jumps straight to the next window (Λ ≤ 0) or starts emitting gaps
// within it.
func (r *Runtime) runWindow(windowStart float64) {
	if windowStart >= r.sched.Horizon() {
		return
	}

	u := r.sampleActiveUsers()
	rpm := r.Config.AvgRequestPerMinutePerUser.Mean
	lambda := u * rpm / 60.0
	windowEnd := windowStart + r.Config.UserSamplingWindow

	if lambda <= 0 {
		logrus.Debugf("generator %s: zero-rate window [%v,%v), skipping to next window", r.Config.ID, windowStart, windowEnd)
		r.scheduleWindowBoundary(windowEnd)
		return
	}

	r.emitGap(windowStart, windowEnd, lambda)
}

// sampleActiveUsers draws U for the Poisson–Poisson or Gaussian–Poisson
// variant selected by Config.AvgActiveUsers.Distribution.
func (r *Runtime) sampleActiveUsers() float64 {
	return r.Config.AvgActiveUsers.Resolve().Sample(r.rng)
}

func (r *Runtime) scheduleWindowBoundary(windowEnd float64) {
	if windowEnd >= r.sched.Horizon() {
		return
	}
	r.sched.Schedule(windowEnd, engine.EventTypeGeneric, func() {
		r.runWindow(windowEnd)
	})
}

// emitGap draws one inter-arrival gap via inverse-CDF and schedules
// either the next request emission or, if the gap crosses the window
// boundary, a re-sample of U at the boundary.
func (r *Runtime) emitGap(now, windowEnd, lambda float64) {
	u := r.rng.Float64()
	if u < inverseCDFEpsilon {
		u = inverseCDFEpsilon
	}
	gap := sampler.InverseCDFExponential(u, lambda)
	next := now + gap

	if next >= windowEnd {
		r.scheduleWindowBoundary(windowEnd)
		return
	}
	if next >= r.sched.Horizon() {
		return
	}

	r.sched.Schedule(next, engine.EventTypeGeneric, func() {
		r.emitRequest(next)
		r.emitGap(next, windowEnd, lambda)
	})
}

func (r *Runtime) emitRequest(t float64) {
	req := request.New(r.nextID, t)
	r.nextID++
	req.RecordHop(request.Generator, r.Config.ID, t)
	r.OutEdge.Transport(req)
}

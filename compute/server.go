// Package compute implements the server runtime: an inbox dispatcher that
// spawns one handler per request, where each handler acquires RAM upfront
// then alternates CPU (holding a core) and IO (not holding a core) steps
// before releasing RAM and forwarding downstream.
package compute

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/AsyncFlow-Sim/AsyncFlow/engine"
	"github.com/AsyncFlow-Sim/AsyncFlow/network"
	"github.com/AsyncFlow-Sim/AsyncFlow/request"
)

// StepKind names an endpoint step's resource class.
type StepKind string

const (
	StepCPU StepKind = "CPU"
	StepRAM StepKind = "RAM"
	StepIO  StepKind = "IO"
)

// Step is one unit of work inside an endpoint. Value holds whichever op
// the Kind implies: cpu_time for CPU, necessary_ram for RAM, or
// io_waiting_time for IO.
type Step struct {
	Kind  StepKind
	Value float64
}

// Validate checks step-kind/op coherence and non-negativity.
func (s Step) Validate(fieldPath string) error {
	switch s.Kind {
	case StepCPU, StepRAM, StepIO:
	default:
		return fmt.Errorf("%s: unknown step kind %q", fieldPath, s.Kind)
	}
	if s.Value < 0 {
		return fmt.Errorf("%s: value must be ≥ 0, got %v", fieldPath, s.Value)
	}
	return nil
}

// Endpoint is a named sequence of steps, selected with Probability.
type Endpoint struct {
	ID          string
	Probability float64 // 0 ⇒ unspecified; selection is uniform only when no endpoint specifies one
	Steps       []Step
}

// Validate checks every step; RAMDemand reports the endpoint's total RAM.
func (e Endpoint) Validate(fieldPath string) error {
	for i, s := range e.Steps {
		if err := s.Validate(fmt.Sprintf("%s.steps[%d]", fieldPath, i)); err != nil {
			return err
		}
	}
	return nil
}

// RAMDemand sums necessary_ram over all RAM steps.
func (e Endpoint) RAMDemand() float64 {
	total := 0.0
	for _, s := range e.Steps {
		if s.Kind == StepRAM {
			total += s.Value
		}
	}
	return total
}

// Server is the immutable configuration of a server node.
type Server struct {
	ID        string
	CPUCores  int
	RAMMB     int
	Endpoints []Endpoint
}

// Validate checks the Server configuration invariants.
func (s Server) Validate(fieldPath string) error {
	if s.CPUCores < 1 {
		return fmt.Errorf("%s: cpu_cores must be ≥ 1, got %d", fieldPath, s.CPUCores)
	}
	if s.RAMMB < 1 {
		return fmt.Errorf("%s: ram_mb must be ≥ 1, got %d", fieldPath, s.RAMMB)
	}
	if len(s.Endpoints) == 0 {
		return fmt.Errorf("%s: server must declare at least one endpoint", fieldPath)
	}
	probSum := 0.0
	anyProb := false
	for i, e := range s.Endpoints {
		if err := e.Validate(fmt.Sprintf("%s.endpoints[%d]", fieldPath, i)); err != nil {
			return err
		}
		if e.Probability > 0 {
			anyProb = true
			probSum += e.Probability
		}
	}
	if anyProb && math.Abs(probSum-1.0) > 1e-9 {
		return fmt.Errorf("%s: endpoint probabilities must sum to 1 when any is specified, got %v", fieldPath, probSum)
	}
	return nil
}

// Runtime is the live state of a Server for the duration of a run.
type Runtime struct {
	Server Server

	CPU *engine.Container
	RAM *engine.Container

	ReadyQ int // handlers currently blocked waiting for a CPU token
	IOQ    int // handlers currently in an I/O timeout segment

	Inbox   *engine.Store
	OutEdge *network.Runtime

	sched *engine.Scheduler
	rng   *rand.Rand
}

// NewRuntime creates a server runtime forwarding completed requests to
// outEdge. Call Start to begin accepting inbox traffic.
func NewRuntime(server Server, inbox *engine.Store, outEdge *network.Runtime, sched *engine.Scheduler, rng *rand.Rand) *Runtime {
	return &Runtime{
		Server:  server,
		CPU:     engine.NewContainer(server.CPUCores, sched),
		RAM:     engine.NewContainer(server.RAMMB, sched),
		Inbox:   inbox,
		OutEdge: outEdge,
		sched:   sched,
		rng:     rng,
	}
}

// Start begins the dispatcher loop: block on the inbox, and for each
// message, spawn an independent handler task, then immediately resume
// listening. Handlers for the same server start in arrival order but may
// finish out of order.
func (r *Runtime) Start() {
	r.acceptNext()
}

func (r *Runtime) acceptNext() {
	r.Inbox.Get(func(v interface{}) {
		req := v.(*request.State)
		r.startHandler(req)
		r.acceptNext()
	})
}

// handlerState tracks whether the in-flight handler currently holds a CPU
// token and whether it is mid-I/O-segment, so consecutive same-kind steps
// neither re-acquire a CPU token nor double-count the I/O queue.
type handlerState struct {
	holdsCPU bool
	ioActive bool
}

func (r *Runtime) startHandler(req *request.State) {
	endpoint := r.selectEndpoint()
	ramDemand := int(endpoint.RAMDemand())
	if ramDemand < 1 {
		ramDemand = 1 // a Container.Get requires n>0; zero-RAM endpoints still take a token
	}

	r.RAM.Get(ramDemand, func() {
		r.runStep(req, endpoint, 0, handlerState{}, ramDemand)
	})
}

func (r *Runtime) runStep(req *request.State, endpoint Endpoint, idx int, hs handlerState, ramDemand int) {
	if idx >= len(endpoint.Steps) {
		r.finishHandler(req, hs, ramDemand)
		return
	}

	step := endpoint.Steps[idx]
	switch step.Kind {
	case StepCPU:
		if hs.ioActive {
			r.IOQ--
			hs.ioActive = false
		}
		if hs.holdsCPU {
			r.scheduleStep(req, endpoint, idx, step, hs, ramDemand)
			return
		}
		r.ReadyQ++
		r.CPU.Get(1, func() {
			r.ReadyQ--
			next := hs
			next.holdsCPU = true
			r.scheduleStep(req, endpoint, idx, step, next, ramDemand)
		})

	case StepIO:
		if hs.holdsCPU {
			r.CPU.Put(1)
			hs.holdsCPU = false
		}
		if !hs.ioActive {
			r.IOQ++
			hs.ioActive = true
		}
		r.scheduleStep(req, endpoint, idx, step, hs, ramDemand)

	case StepRAM:
		// No extra action: RAM was already allocated at handler start.
		r.runStep(req, endpoint, idx+1, hs, ramDemand)
	}
}

func (r *Runtime) scheduleStep(req *request.State, endpoint Endpoint, idx int, step Step, hs handlerState, ramDemand int) {
	r.sched.Schedule(r.sched.Now()+step.Value, engine.EventTypeGeneric, func() {
		r.runStep(req, endpoint, idx+1, hs, ramDemand)
	})
}

func (r *Runtime) finishHandler(req *request.State, hs handlerState, ramDemand int) {
	if hs.holdsCPU {
		r.CPU.Put(1)
	}
	if hs.ioActive {
		r.IOQ--
	}
	r.RAM.Put(ramDemand)

	req.RecordHop(request.Server, r.Server.ID, r.sched.Now())
	r.OutEdge.Transport(req)
}

// selectEndpoint picks an endpoint: weighted selection when probabilities
// are specified and sum to 1, uniform otherwise.
func (r *Runtime) selectEndpoint() Endpoint {
	endpoints := r.Server.Endpoints
	if len(endpoints) == 1 {
		return endpoints[0]
	}

	anyProb := false
	for _, e := range endpoints {
		if e.Probability > 0 {
			anyProb = true
			break
		}
	}
	if !anyProb {
		return endpoints[r.rng.Intn(len(endpoints))]
	}

	u := r.rng.Float64()
	cumulative := 0.0
	for _, e := range endpoints {
		cumulative += e.Probability
		if u < cumulative {
			return e
		}
	}
	return endpoints[len(endpoints)-1]
}

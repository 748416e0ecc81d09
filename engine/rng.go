package engine

import (
	"hash/fnv"
	"math/rand"
)

// Subsystem name constants for common AsyncFlow subsystems. Using named
// constants (rather than ad-hoc strings scattered across callers) keeps
// derivation collisions obvious at a glance.
const (
	SubsystemGenerator = "generator"
	SubsystemEdge      = "edge"
	SubsystemRouting   = "routing"
	SubsystemServer    = "server"
)

// PartitionedRNG provides isolated, deterministic RNG streams per
// subsystem/entity so that, e.g., adding a server does not perturb the
// edge-drop draws of an unrelated edge. A single seeded handle is threaded
// through the builders rather than relying on a package-level global RNG.
// Seed derivation hashes the subsystem name, so stream assignment is
// independent of construction order: ForEntity("server", "srv1") draws the
// same stream whether srv1 is built before or after srv2.
type PartitionedRNG struct {
	masterSeed int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG seeded from masterSeed.
func NewPartitionedRNG(masterSeed int64) *PartitionedRNG {
	return &PartitionedRNG{
		masterSeed: masterSeed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the (lazily created) RNG stream for name. Repeated
// calls with the same name return the same *rand.Rand instance, so state
// accumulates deterministically across the run.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.deriveSeed(name)))
	p.subsystems[name] = rng
	return rng
}

// ForEntity is a convenience wrapper producing a per-entity stream, e.g.
// ForEntity("edge", "e1") or ForEntity("server", "srv1").
func (p *PartitionedRNG) ForEntity(subsystem, id string) *rand.Rand {
	return p.ForSubsystem(subsystem + ":" + id)
}

// deriveSeed derives an order-independent subsystem seed by XORing the
// master seed with an FNV-1a hash of the subsystem name.
func (p *PartitionedRNG) deriveSeed(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return p.masterSeed ^ int64(h.Sum64())
}

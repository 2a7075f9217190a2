package sched

import (
	"hash/fnv"
	"math/rand"

	exprand "golang.org/x/exp/rand"
)

// === Subsystem Constants ===

const (
	// SubsystemScheduler is the RNG subsystem for route-mode draws.
	SubsystemScheduler = "scheduler"

	// SubsystemWeights is the RNG subsystem backing the weighted PRIMARY
	// draw. Separate from SubsystemScheduler so adding scorers does not
	// perturb the mode-draw sequence.
	SubsystemWeights = "weights"

	// SubsystemColony is the RNG subsystem for the explorer strategy.
	SubsystemColony = "colony"

	// SubsystemSwarm is the RNG subsystem for the exploiter strategy.
	SubsystemSwarm = "swarm"

	// SubsystemWorkload is the RNG subsystem for demo workload synthesis.
	SubsystemWorkload = "workload"
)

// PartitionedRNG provides deterministic, isolated RNG instances per
// subsystem. Two runs with the same seed and identical call sequences
// produce identical decisions.
//
// Derivation: seed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine
// (the Scheduler calls it only inside its critical section).
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same name always returns the same *rand.Rand instance.
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// SourceFor returns a gonum-compatible random source derived the same way
// as ForSubsystem. Used where gonum samplers need an exp/rand source.
func (p *PartitionedRNG) SourceFor(name string) *exprand.Rand {
	return exprand.New(exprand.NewSource(uint64(p.seed ^ fnv1a64(name))))
}

// Seed returns the master seed used to create this PartitionedRNG.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

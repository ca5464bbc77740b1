package sim

import (
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and the same sequence of client
// actions MUST produce byte-identical deliveries.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === PartitionedRNG ===

// PartitionedRNG owns the root random stream of a run and the independent
// per-client streams derived from it.
//
// Derivation: the first ForClient call for a client draws one Int63 from the
// root stream and uses it as the seed of that client's stream. Derived seeds
// therefore depend on registration order, which is part of the fixed action
// sequence a reproducible run requires.
//
// Thread-safety: NOT thread-safe. Server serializes access.
type PartitionedRNG struct {
	key     SimulationKey
	root    *rand.Rand
	clients map[ClientID]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:     key,
		root:    rand.New(rand.NewSource(int64(key))),
		clients: make(map[ClientID]*rand.Rand),
	}
}

// ForClient returns the stream bound to id, deriving it from the root
// stream on first use. The same id always returns the same *rand.Rand.
// Never returns nil.
func (p *PartitionedRNG) ForClient(id ClientID) *rand.Rand {
	if rng, ok := p.clients[id]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.root.Int63()))
	p.clients[id] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// uniform draws a variate in [0, 1) from rng.
func uniform(rng *rand.Rand) float64 {
	return rng.Float64()
}

// sampleLatency draws an integer latency uniformly from [lo, hi).
func sampleLatency(rng *rand.Rand, lo, hi SimTime) SimTime {
	return lo + SimTime(rng.Int63n(int64(hi-lo)))
}

package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/bigramdict/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Terminal returns a terminal id in [0,n).
func (r *RNG) Terminal(n int) model.TerminalID {
	return model.TerminalID(r.Intn(n))
}

// Probability returns a raw probability in [0,maxProb].
func (r *RNG) Probability(maxProb int) model.Probability {
	return model.Probability(r.Intn(maxProb + 1))
}

// OpKind is the kind of a generated update.
type OpKind int

const (
	OpAdd OpKind = iota
	OpRemove
)

// Op is one generated update of a terminal's bigram list.
type Op struct {
	Kind        OpKind
	Terminal    model.TerminalID
	Target      model.TerminalID
	Probability model.Probability
}

// Ops generates n updates over terminals in [0,terminals). Roughly one in
// three is a removal.
func (r *RNG) Ops(n, terminals, maxProb int) []Op {
	r.mu.Lock()
	defer r.mu.Unlock()

	ops := make([]Op, n)
	for i := range ops {
		op := Op{
			Kind:     OpAdd,
			Terminal: model.TerminalID(r.rand.Intn(terminals)),
			Target:   model.TerminalID(r.rand.Intn(terminals)),
		}
		if r.rand.Intn(3) == 0 {
			op.Kind = OpRemove
		} else {
			op.Probability = model.Probability(r.rand.Intn(maxProb + 1))
		}
		ops[i] = op
	}
	return ops
}

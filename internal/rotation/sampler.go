package rotation

import (
	"math/rand"
	"sync"

	"github.com/ignite/leadpage/internal/domain"
)

// Sampler produces the random input for Select. Implementations must return
// values in [0,100).
type Sampler interface {
	Sample() float64
}

// SamplerFunc adapts a plain function to Sampler.
type SamplerFunc func() float64

// Sample calls f.
func (f SamplerFunc) Sample() float64 { return f() }

// RandSampler draws uniform samples from a seeded source. It is safe for
// concurrent use.
type RandSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSampler creates a sampler seeded with seed. Equal seeds yield equal
// sequences, which keeps selection reproducible in tests.
func NewRandSampler(seed int64) *RandSampler {
	return &RandSampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample returns a value in [0,100).
func (s *RandSampler) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() * TotalWeight
}

// Router pairs the pure selection rule with a source of randomness.
type Router struct {
	sampler Sampler
}

// NewRouter creates a router drawing samples from sampler.
func NewRouter(sampler Sampler) *Router {
	return &Router{sampler: sampler}
}

// Route picks one target for a single selection event.
func (r *Router) Route(targets []domain.ContactTarget) (domain.ContactTarget, error) {
	idx, err := selectIndex(targets, r.sampler.Sample())
	if err != nil {
		return domain.ContactTarget{}, err
	}
	return targets[idx], nil
}

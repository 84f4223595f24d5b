package bandit

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Sampler draws Beta variates for Thompson sampling. Safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a Sampler seeded from the given values. Fixed seeds give
// reproducible draws in tests.
func NewSampler(seed1, seed2 uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Beta draws one sample from Beta(alpha, beta) via two Gamma draws.
func (s *Sampler) Beta(alpha, beta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	x := s.gamma(alpha)
	y := s.gamma(beta)

	if x+y == 0 {
		return 0.5
	}

	return x / (x + y)
}

// gamma draws from Gamma(shape, 1) using the Marsaglia-Tsang squeeze method.
// Shapes below 1 use the boost G(a) = G(a+1) * U^(1/a).
func (s *Sampler) gamma(shape float64) float64 {
	if shape < 1 {
		u := s.rng.Float64()
		for u == 0 {
			u = s.rng.Float64()
		}

		return s.gamma(shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		var x, v float64

		for {
			x = s.rng.NormFloat64()
			v = 1.0 + c*x

			if v > 0 {
				break
			}
		}

		v = v * v * v
		u := s.rng.Float64()

		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}

		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}

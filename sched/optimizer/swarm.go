package optimizer

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
)

const (
	defaultParticles = 2
	initialSpread    = 0.3
	spreadShrink     = 0.7
)

// SwarmRefiner is the narrow, refinement-oriented strategy: a particle
// swarm style local search that jitters around the currently favored
// parameter values and pulls the favored position toward any particle
// that scores better.
type SwarmRefiner struct {
	mu        sync.Mutex
	rng       *rand.Rand
	base      map[string]float64
	bestScore float64
	particles int
}

// NewSwarmRefiner builds the exploiter strategy. A nil base seeds the
// favored position at 1.0 for every factor in DefaultFactorPool;
// particles <= 0 selects defaultParticles.
func NewSwarmRefiner(seed int64, base map[string]float64, particles int) *SwarmRefiner {
	if len(base) == 0 {
		base = make(map[string]float64)
		for _, f := range DefaultFactorPool() {
			base[f] = 1.0
		}
	}
	if particles <= 0 {
		particles = defaultParticles
	}
	return &SwarmRefiner{
		rng:       rand.New(rand.NewSource(seed)),
		base:      base,
		bestScore: 0.5,
		particles: particles,
	}
}

// Name implements Strategy.
func (s *SwarmRefiner) Name() string { return "swarm" }

// Run implements Strategy. Particles perturb the favored parameters with
// shrinking spread; an improving particle drags the favored position a
// step toward itself.
func (s *SwarmRefiner) Run(ctx context.Context, query string) ([]Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	factors := make([]string, 0, len(s.base))
	for f := range s.base {
		factors = append(factors, f)
	}
	sort.Strings(factors)

	candidates := make([]Candidate, 0, s.particles)
	spread := initialSpread
	for particle := 0; particle < s.particles; particle++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params := make(map[string]float64, len(s.base))
		drift := 0.0
		for _, f := range factors {
			delta := s.rng.NormFloat64() * spread
			v := s.base[f] + delta
			if v < 0.01 {
				v = 0.01
			}
			params[f] = math.Round(v*100) / 100
			drift += math.Abs(delta)
		}

		// Tight particles score higher: refinement rewards staying near the
		// favored position, with noise to keep the search moving.
		score := 1.0/(1.0+drift) + s.rng.Float64()*0.05
		if score > s.bestScore {
			s.bestScore = score
			for f, v := range params {
				s.base[f] += 0.3 * (v - s.base[f])
			}
		}

		candidates = append(candidates, Candidate{
			Factors:    factors,
			Parameters: params,
			Score:      score,
			Provenance: s.Name(),
		})
		spread *= spreadShrink
	}
	return candidates, nil
}

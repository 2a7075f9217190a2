package optimizer

import (
	"context"
	"math"
	"math/rand"
	"sync"
)

// DefaultFactorPool is the tuning surface both built-in strategies draw
// from when no pool is configured.
func DefaultFactorPool() []string {
	return []string{
		"parallelism",
		"batch-window",
		"cache-bias",
		"retry-budget",
		"timeout-scale",
		"locality-boost",
	}
}

const (
	defaultAnts          = 3
	pheromoneEvaporation = 0.9
	pheromoneFloor       = 0.05
)

// ColonyExplorer is the broad, higher-variance strategy: an ant-colony
// style search where pheromone accumulates on factor combinations that
// scored well in earlier invocations, biasing later sampling toward them
// without ever pinning the sampler to one combination.
type ColonyExplorer struct {
	mu        sync.Mutex
	rng       *rand.Rand
	pool      []string
	pheromone map[string]float64
	ants      int
}

// NewColonyExplorer builds the explorer strategy. A nil pool selects
// DefaultFactorPool; ants <= 0 selects defaultAnts.
func NewColonyExplorer(seed int64, pool []string, ants int) *ColonyExplorer {
	if len(pool) == 0 {
		pool = DefaultFactorPool()
	}
	if ants <= 0 {
		ants = defaultAnts
	}
	pheromone := make(map[string]float64, len(pool))
	for _, f := range pool {
		pheromone[f] = 1.0
	}
	return &ColonyExplorer{
		rng:       rand.New(rand.NewSource(seed)),
		pool:      pool,
		pheromone: pheromone,
		ants:      ants,
	}
}

// Name implements Strategy.
func (c *ColonyExplorer) Name() string { return "colony" }

// Run implements Strategy. Each ant walks a weighted sample of factors,
// proposes parameter values for them, and deposits pheromone scaled by
// its score.
func (c *ColonyExplorer) Run(ctx context.Context, query string) ([]Candidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range c.pool {
		c.pheromone[f] *= pheromoneEvaporation
		if c.pheromone[f] < pheromoneFloor {
			c.pheromone[f] = pheromoneFloor
		}
	}

	candidates := make([]Candidate, 0, c.ants)
	for ant := 0; ant < c.ants; ant++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		factors := c.walk(2 + c.rng.Intn(3))
		params := make(map[string]float64, len(factors))
		mass := 0.0
		for _, f := range factors {
			params[f] = math.Round((0.1+c.rng.Float64()*1.9)*100) / 100
			mass += c.pheromone[f]
		}

		score := mass/float64(len(factors)) + c.rng.Float64()*0.1
		for _, f := range factors {
			c.pheromone[f] += 0.1 * score
		}

		candidates = append(candidates, Candidate{
			Factors:    factors,
			Parameters: params,
			Score:      score,
			Provenance: c.Name(),
		})
	}
	return candidates, nil
}

// walk samples k distinct factors weighted by pheromone.
func (c *ColonyExplorer) walk(k int) []string {
	if k > len(c.pool) {
		k = len(c.pool)
	}
	remaining := append([]string(nil), c.pool...)
	chosen := make([]string, 0, k)

	for len(chosen) < k {
		total := 0.0
		for _, f := range remaining {
			total += c.pheromone[f]
		}
		draw := c.rng.Float64() * total
		idx := len(remaining) - 1
		for i, f := range remaining {
			draw -= c.pheromone[f]
			if draw <= 0 {
				idx = i
				break
			}
		}
		chosen = append(chosen, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return chosen
}

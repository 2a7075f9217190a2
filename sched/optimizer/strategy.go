// Package optimizer runs two independent candidate-generation strategies
// concurrently for a query and fuses their output deterministically for
// downstream caching and logging.
package optimizer

import (
	"context"
	"fmt"
	"sort"

	"github.com/swarmroute/swarmroute/sched/recorder"
)

// Candidate is one proposed factor/parameter tuning produced by a
// strategy. Factors are unique and order-insignificant; Parameters maps
// parameter keys to proposed values.
type Candidate struct {
	Factors    []string           `json:"factors"`
	Parameters map[string]float64 `json:"parameters"`
	Score      float64            `json:"score"`
	Provenance string             `json:"provenance"`
}

// FusedCandidate extends a Candidate with the order-insensitive path hash
// and a deterministic embedding. Both exist for cache-key stability and
// dedup, not semantic meaning.
type FusedCandidate struct {
	Candidate
	PathHash  string    `json:"pathHash"`
	Embedding []float64 `json:"embedding"`
}

// Strategy is one candidate-generation heuristic. Run must honor ctx
// cancellation and must not share mutable state with other strategies;
// the pipeline tolerates independent failure.
type Strategy interface {
	Name() string
	Run(ctx context.Context, query string) ([]Candidate, error)
}

// embeddingDims is the fixed embedding width: the first embeddingDims
// bytes of a content digest, each mapped to [0, 1).
const embeddingDims = 16

// Fuse derives the path hash and embedding for a candidate.
func Fuse(query string, c Candidate) FusedCandidate {
	sortedFactors := append([]string(nil), c.Factors...)
	sort.Strings(sortedFactors)

	keys := make([]string, 0, len(c.Parameters))
	for k := range c.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return FusedCandidate{
		Candidate: c,
		PathHash:  recorder.StableHash(append(sortedFactors, keys...)),
		Embedding: deriveEmbedding(query, c.Factors, keys),
	}
}

// deriveEmbedding maps the content digest of (query, factors, sorted
// parameter keys) to an embeddingDims-wide vector in [0, 1).
func deriveEmbedding(query string, factors, sortedKeys []string) []float64 {
	parts := make([]string, 0, 1+len(factors)+len(sortedKeys))
	parts = append(parts, query)
	parts = append(parts, factors...)
	parts = append(parts, sortedKeys...)

	digest := recorder.StableDigest(parts)
	embedding := make([]float64, embeddingDims)
	for i := range embedding {
		embedding[i] = float64(digest[i]) / 256.0
	}
	return embedding
}

// NewStrategy creates a strategy by name. Valid names: "colony",
// "swarm". Panics on unrecognized names.
func NewStrategy(name string, seed int64) Strategy {
	switch name {
	case "colony":
		return NewColonyExplorer(seed, nil, 0)
	case "swarm":
		return NewSwarmRefiner(seed, nil, 0)
	default:
		panic(fmt.Sprintf("unknown strategy %q", name))
	}
}

package sched

import (
	"fmt"
	"math"
	"time"
)

// Config groups the tunable parameters of the adaptive partition scheduler.
// All fields have working defaults from DefaultConfig; zero values are not
// usable directly (Partitions must be positive).
type Config struct {
	// Partitions is the number of execution partitions, fixed at construction.
	// Partition ids are 0..Partitions-1 and never change at runtime.
	Partitions int `yaml:"partitions"`

	// BaseExplorerProb is the baseline probability of routing a request in
	// EXPLORER mode. The runtime probability starts here and drifts within
	// [0, MaxExplorerProb] as feedback arrives. Default: 0.2.
	BaseExplorerProb float64 `yaml:"baseExplorerProb"`

	// SuccessDecay is the EMA decay for boolean success feedback.
	// new = decay*old + (1-decay)*observation. Default: 0.85.
	SuccessDecay float64 `yaml:"successDecay"`

	// QualityDecay is the EMA decay for the external quality signal.
	// Default: 0.9.
	QualityDecay float64 `yaml:"qualityDecay"`

	// MaxAgeWeight bounds the influence of very stale partitions in the
	// PRIMARY weighted draw. Default: 500.
	MaxAgeWeight int `yaml:"maxAgeWeight"`

	// SnapshotInterval is the number of routing steps between periodic
	// snapshot events. Default: 25. Zero disables periodic snapshots.
	SnapshotInterval int `yaml:"snapshotInterval"`

	// FeedbackWindow is the per-partition ring buffer capacity of the
	// predictive adjustment hook. Default: 50.
	FeedbackWindow int `yaml:"feedbackWindow"`

	// ExplorerMaxStep bounds a single exploration-bias adjustment from the
	// hook. Default: 0.05.
	ExplorerMaxStep float64 `yaml:"explorerMaxStep"`

	// HistoryTimeout bounds the best-effort call to the history provider
	// inside Feedback. Default: 250ms.
	HistoryTimeout time.Duration `yaml:"historyTimeout"`

	// Seed seeds the per-subsystem RNG partition. Same seed and same call
	// sequence reproduce identical routing decisions.
	Seed int64 `yaml:"seed"`
}

// Bounds and seeds for telemetry and the exploration probability.
// Exported behavior depends on these staying fixed; they are not
// configuration because the update rules were tuned against them.
const (
	// QualityMin and QualityMax clamp qualityEMA after every adjustment.
	QualityMin = 0.01
	QualityMax = 2.0

	// QualitySeed is the initial qualityEMA for a fresh partition. Small
	// positive so unused partitions are not starved in the weighted draw.
	QualitySeed = 0.1

	// MaxExplorerProb is the hard ceiling on the runtime exploration
	// probability.
	MaxExplorerProb = 0.9
)

// Thresholds of the predictive adjustment rules. Hand-tuned in the system
// this design was calibrated against; kept as named constants rather than
// re-derived. Candidates for future calibration.
const (
	// failBurstMaxSuccessRatio: below this recent success ratio a failure
	// burst qualifies for an exploration push.
	failBurstMaxSuccessRatio = 0.35
	// failBurstMaxElevation: a burst push is suppressed once the runtime
	// exploration probability is this far above baseline.
	failBurstMaxElevation = 0.15
	// failBurstLatencyMs: recent latency above this strengthens the push.
	failBurstLatencyMs = 150.0

	// strongMinSuccessRatio, strongMaxLatencyMs, strongMinSamples gate the
	// "strong recent performance" trim/reward rule.
	strongMinSuccessRatio = 0.8
	strongMaxLatencyMs    = 120.0
	strongMinSamples      = 5

	// convergenceGain scales the default quality drift toward the recent
	// success ratio.
	convergenceGain = 0.1
)

// DefaultConfig returns the scheduler defaults for n partitions.
func DefaultConfig(n int) Config {
	return Config{
		Partitions:       n,
		BaseExplorerProb: 0.2,
		SuccessDecay:     0.85,
		QualityDecay:     0.9,
		MaxAgeWeight:     500,
		SnapshotInterval: 25,
		FeedbackWindow:   50,
		ExplorerMaxStep:  0.05,
		HistoryTimeout:   250 * time.Millisecond,
		Seed:             42,
	}
}

// ValidateConfig returns an error if the config is unusable. Construction
// fails fast on misconfiguration; nothing here is recoverable at call time.
func ValidateConfig(cfg Config) error {
	if cfg.Partitions <= 0 {
		return fmt.Errorf("Partitions must be positive, got %d", cfg.Partitions)
	}
	if cfg.BaseExplorerProb < 0 || cfg.BaseExplorerProb > MaxExplorerProb ||
		math.IsNaN(cfg.BaseExplorerProb) {
		return fmt.Errorf("BaseExplorerProb must be in [0, %v], got %v", MaxExplorerProb, cfg.BaseExplorerProb)
	}
	if cfg.SuccessDecay < 0 || cfg.SuccessDecay > 1 || math.IsNaN(cfg.SuccessDecay) {
		return fmt.Errorf("SuccessDecay must be in [0, 1], got %v", cfg.SuccessDecay)
	}
	if cfg.QualityDecay < 0 || cfg.QualityDecay > 1 || math.IsNaN(cfg.QualityDecay) {
		return fmt.Errorf("QualityDecay must be in [0, 1], got %v", cfg.QualityDecay)
	}
	if cfg.MaxAgeWeight <= 0 {
		return fmt.Errorf("MaxAgeWeight must be positive, got %d", cfg.MaxAgeWeight)
	}
	if cfg.SnapshotInterval < 0 {
		return fmt.Errorf("SnapshotInterval must be non-negative, got %d", cfg.SnapshotInterval)
	}
	if cfg.FeedbackWindow <= 0 {
		return fmt.Errorf("FeedbackWindow must be positive, got %d", cfg.FeedbackWindow)
	}
	if cfg.ExplorerMaxStep <= 0 || cfg.ExplorerMaxStep > 0.5 {
		return fmt.Errorf("ExplorerMaxStep must be in (0, 0.5], got %v", cfg.ExplorerMaxStep)
	}
	if cfg.HistoryTimeout < 0 {
		return fmt.Errorf("HistoryTimeout must be non-negative, got %v", cfg.HistoryTimeout)
	}
	return nil
}

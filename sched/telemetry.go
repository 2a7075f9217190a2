package sched

// PartitionTelemetry holds the per-partition counters and moving averages
// that drive routing. Owned exclusively by the Scheduler; all mutation
// happens inside its critical section.
type PartitionTelemetry struct {
	// Hits is the total number of routes ever sent to this partition.
	Hits uint64
	// ExplorerHits is the subset of Hits routed in EXPLORER mode.
	// Invariant: ExplorerHits <= Hits.
	ExplorerHits uint64
	// LastUsedStep is the step counter value at the last routing, -1 if the
	// partition was never used.
	LastUsedStep int64
	// SuccessEMA tracks boolean success feedback in [0, 1].
	SuccessEMA float64
	// QualityEMA tracks the external quality signal, clamped to
	// [QualityMin, QualityMax] after every adjustment.
	QualityEMA float64
	// AvgLatencyMs tracks reported latency. Valid only once HasLatency.
	AvgLatencyMs float64
	HasLatency   bool
}

func newPartitionTelemetry() *PartitionTelemetry {
	return &PartitionTelemetry{
		LastUsedStep: -1,
		QualityEMA:   QualitySeed,
	}
}

// observeSuccess folds a boolean outcome into SuccessEMA.
func (pt *PartitionTelemetry) observeSuccess(decay float64, success bool) {
	obs := 0.0
	if success {
		obs = 1.0
	}
	pt.SuccessEMA = decay*pt.SuccessEMA + (1-decay)*obs
}

// observeLatency folds a latency sample into AvgLatencyMs. The first
// observation seeds the average directly.
func (pt *PartitionTelemetry) observeLatency(latencyMs float64) {
	if !pt.HasLatency {
		pt.AvgLatencyMs = latencyMs
		pt.HasLatency = true
		return
	}
	pt.AvgLatencyMs = 0.7*pt.AvgLatencyMs + 0.3*latencyMs
}

// observeQuality folds an external quality signal into QualityEMA.
func (pt *PartitionTelemetry) observeQuality(decay, signal float64) {
	pt.QualityEMA = decay*pt.QualityEMA + (1-decay)*signal
	pt.clampQuality()
}

// adjustQuality applies a hook delta and re-clamps.
func (pt *PartitionTelemetry) adjustQuality(delta float64) {
	pt.QualityEMA += delta
	pt.clampQuality()
}

func (pt *PartitionTelemetry) clampQuality() {
	if pt.QualityEMA < QualityMin {
		pt.QualityEMA = QualityMin
	}
	if pt.QualityEMA > QualityMax {
		pt.QualityEMA = QualityMax
	}
}

// age returns the number of steps since this partition was last routed,
// or t+1 if it was never used.
func (pt *PartitionTelemetry) age(t int64) int64 {
	if pt.LastUsedStep < 0 {
		return t + 1
	}
	return t - pt.LastUsedStep
}

// novelty scores how attractive this partition is for exploration once the
// initial sweep queue is drained: failing and rarely-used partitions rank
// highest.
func (pt *PartitionTelemetry) novelty() float64 {
	return (1 - pt.SuccessEMA) / float64(1+pt.Hits)
}

// explorerRatio returns ExplorerHits/Hits, 0 for an unused partition.
func (pt *PartitionTelemetry) explorerRatio() float64 {
	if pt.Hits == 0 {
		return 0
	}
	return float64(pt.ExplorerHits) / float64(pt.Hits)
}

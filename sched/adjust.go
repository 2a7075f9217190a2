package sched

import (
	"gonum.org/v1/gonum/stat"
)

// maxQualityDelta bounds a single quality adjustment from the hook.
const maxQualityDelta = 0.05

// feedbackSample is one (success, latency) observation in a partition's
// rolling window.
type feedbackSample struct {
	success    bool
	latencyMs  float64
	hasLatency bool
}

// FeedbackSnapshot is the feature snapshot the Scheduler hands to the
// adjustment hook alongside each feedback event. All values are as of the
// current critical section; the hook never reads scheduler state directly.
type FeedbackSnapshot struct {
	SuccessEMA          float64
	QualityEMA          float64
	AvgLatencyMs        float64
	HasLatency          bool
	ExplorerRatio       float64
	AgeSteps            int64
	DynamicExplorerProb float64
	BaseExplorerProb    float64
	// LastSuccess is the outcome of the feedback event that triggered this
	// adjustment.
	LastSuccess bool
	// HistoryClass is the classified historical-failure narrative, or
	// HistoryNone when the provider was skipped, empty or unavailable.
	HistoryClass HistoryClass
	// HistoryContext is the raw narrative, retained for event logging only.
	HistoryContext string
}

// AdjustmentHook derives small bounded deltas to a partition's quality and
// the global exploration bias from a rolling per-partition feedback window.
// It owns its ring buffers and returns pure deltas; the Scheduler applies
// and clamps them, preserving single-writer discipline over telemetry.
type AdjustmentHook struct {
	window          int
	explorerMaxStep float64
	buffers         [][]feedbackSample
}

// NewAdjustmentHook creates a hook for the given partition count.
func NewAdjustmentHook(partitions, window int, explorerMaxStep float64) *AdjustmentHook {
	return &AdjustmentHook{
		window:          window,
		explorerMaxStep: explorerMaxStep,
		buffers:         make([][]feedbackSample, partitions),
	}
}

// Observe appends a feedback sample to the partition's window, evicting
// the oldest entry once the window is full.
func (h *AdjustmentHook) Observe(partition int, success bool, latencyMs float64, hasLatency bool) {
	if partition < 0 || partition >= len(h.buffers) {
		return
	}
	buf := append(h.buffers[partition], feedbackSample{
		success:    success,
		latencyMs:  latencyMs,
		hasLatency: hasLatency,
	})
	if len(buf) > h.window {
		buf = buf[len(buf)-h.window:]
	}
	h.buffers[partition] = buf
}

// Adjust computes (qualityDelta, explorerDelta) for the partition, bounded
// to ±maxQualityDelta and ±explorerMaxStep. Rules are evaluated in
// priority order: fresh failure burst, strong recent performance, default
// convergence. Historical-context nudges apply on top.
func (h *AdjustmentHook) Adjust(partition int, snap FeedbackSnapshot) (float64, float64) {
	if partition < 0 || partition >= len(h.buffers) {
		return 0, 0
	}
	buf := h.buffers[partition]

	ratio, avgLatency, latencyKnown, count := h.recentStats(buf, snap)
	streak := failStreak(buf)

	var qualityDelta, explorerDelta float64

	switch snap.HistoryClass {
	case HistoryRecoveryLikely:
		// Past incidents resolved on their own. Nudge gently, and only when
		// exploration is not already elevated and recovery has not shown up
		// in recent results yet.
		if snap.DynamicExplorerProb <= snap.BaseExplorerProb+0.1 && ratio < 0.5 {
			explorerDelta += 0.01
			qualityDelta += 0.01
		}
	case HistoryPersistentDegradation:
		explorerDelta += 0.03
		qualityDelta -= 0.02
	}

	elevation := snap.DynamicExplorerProb - snap.BaseExplorerProb

	switch {
	case count >= 2 && ratio < failBurstMaxSuccessRatio && streak >= 1 &&
		!snap.LastSuccess && elevation < failBurstMaxElevation:
		// Fresh failure burst: push exploration so traffic spreads away
		// from the failing partition, harder when latency is also elevated.
		// The small quality bump is a de-risking push, not a reward.
		push := 0.02
		if latencyKnown && avgLatency > failBurstLatencyMs {
			push = 0.03
		}
		explorerDelta += push
		qualityDelta += 0.01

	case ratio > strongMinSuccessRatio && latencyKnown &&
		avgLatency < strongMaxLatencyMs && count >= strongMinSamples:
		// Strong recent performance: reward quality proportionally to the
		// margin above the threshold, and walk any elevated exploration
		// back toward baseline.
		if elevation > 0 {
			explorerDelta -= 0.01
		}
		qualityDelta += 0.25 * (ratio - strongMinSuccessRatio)

	default:
		// Slow convergence of quality toward the observed success ratio.
		qualityDelta += convergenceGain * (ratio - snap.QualityEMA)
		if snap.LastSuccess && elevation > 0.05 {
			explorerDelta -= 0.005
		}
	}

	return clamp(qualityDelta, -maxQualityDelta, maxQualityDelta),
		clamp(explorerDelta, -h.explorerMaxStep, h.explorerMaxStep)
}

// recentStats summarizes the partition's window: success ratio, average
// latency, whether any latency is known, and the sample count. Falls back
// to the snapshot EMAs when the window is empty.
func (h *AdjustmentHook) recentStats(buf []feedbackSample, snap FeedbackSnapshot) (float64, float64, bool, int) {
	if len(buf) == 0 {
		return snap.SuccessEMA, snap.AvgLatencyMs, snap.HasLatency, 0
	}

	successes := 0
	var latencies []float64
	for _, s := range buf {
		if s.success {
			successes++
		}
		if s.hasLatency {
			latencies = append(latencies, s.latencyMs)
		}
	}

	ratio := float64(successes) / float64(len(buf))
	avgLatency := snap.AvgLatencyMs
	latencyKnown := snap.HasLatency
	if len(latencies) > 0 {
		avgLatency = stat.Mean(latencies, nil)
		latencyKnown = true
	}
	return ratio, avgLatency, latencyKnown, len(buf)
}

// failStreak counts consecutive failures from the newest entry backward.
func failStreak(buf []feedbackSample) int {
	streak := 0
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i].success {
			break
		}
		streak++
	}
	return streak
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package sched

import (
	"math"
	"testing"
)

// TestTelemetry_SuccessEMAConvergence verifies that repeated success
// feedback drives SuccessEMA monotonically toward 1.0 within a bounded
// number of steps.
func TestTelemetry_SuccessEMAConvergence(t *testing.T) {
	tel := newPartitionTelemetry()
	prev := tel.SuccessEMA
	for i := 0; i < 100; i++ {
		tel.observeSuccess(0.85, true)
		if tel.SuccessEMA <= prev && tel.SuccessEMA < 1.0 {
			t.Fatalf("step %d: SuccessEMA %v not increasing from %v", i, tel.SuccessEMA, prev)
		}
		if tel.SuccessEMA > 1.0 {
			t.Fatalf("step %d: SuccessEMA %v exceeded 1.0", i, tel.SuccessEMA)
		}
		prev = tel.SuccessEMA
	}
	if tel.SuccessEMA < 0.999 {
		t.Errorf("SuccessEMA did not converge: %v", tel.SuccessEMA)
	}
}

// TestTelemetry_LatencyEMAConvergence verifies the first observation seeds
// the average and repeated observations converge monotonically to it.
func TestTelemetry_LatencyEMAConvergence(t *testing.T) {
	tel := newPartitionTelemetry()
	tel.observeLatency(200)
	if tel.AvgLatencyMs != 200 {
		t.Fatalf("first observation should seed directly: got %v", tel.AvgLatencyMs)
	}

	prev := tel.AvgLatencyMs
	for i := 0; i < 60; i++ {
		tel.observeLatency(50)
		if tel.AvgLatencyMs >= prev && tel.AvgLatencyMs > 50 {
			t.Fatalf("step %d: AvgLatencyMs %v not decreasing from %v", i, tel.AvgLatencyMs, prev)
		}
		prev = tel.AvgLatencyMs
	}
	if math.Abs(tel.AvgLatencyMs-50) > 0.01 {
		t.Errorf("AvgLatencyMs did not converge to 50: %v", tel.AvgLatencyMs)
	}
}

// TestTelemetry_QualityClamp verifies quality stays in
// [QualityMin, QualityMax] under extreme signals and adjustments.
func TestTelemetry_QualityClamp(t *testing.T) {
	tel := newPartitionTelemetry()

	for i := 0; i < 200; i++ {
		tel.observeQuality(0.9, 100)
	}
	if tel.QualityEMA > QualityMax {
		t.Errorf("QualityEMA %v exceeded max %v", tel.QualityEMA, QualityMax)
	}

	tel.adjustQuality(-10)
	if tel.QualityEMA != QualityMin {
		t.Errorf("QualityEMA %v not clamped to min %v", tel.QualityEMA, QualityMin)
	}
	tel.adjustQuality(10)
	if tel.QualityEMA != QualityMax {
		t.Errorf("QualityEMA %v not clamped to max %v", tel.QualityEMA, QualityMax)
	}
}

// TestTelemetry_Age verifies the never-used convention and the normal case.
func TestTelemetry_Age(t *testing.T) {
	tel := newPartitionTelemetry()
	if got := tel.age(10); got != 11 {
		t.Errorf("never-used age at t=10: got %d, want 11", got)
	}
	tel.LastUsedStep = 4
	if got := tel.age(10); got != 6 {
		t.Errorf("age at t=10 with last=4: got %d, want 6", got)
	}
}

// TestTelemetry_ExplorerRatio verifies the unused-partition convention.
func TestTelemetry_ExplorerRatio(t *testing.T) {
	tel := newPartitionTelemetry()
	if got := tel.explorerRatio(); got != 0 {
		t.Errorf("unused partition ratio: got %v, want 0", got)
	}
	tel.Hits = 4
	tel.ExplorerHits = 1
	if got := tel.explorerRatio(); got != 0.25 {
		t.Errorf("ratio: got %v, want 0.25", got)
	}
}

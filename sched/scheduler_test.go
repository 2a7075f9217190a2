package sched

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig(n int) Config {
	cfg := DefaultConfig(n)
	cfg.Seed = 7
	return cfg
}

// TestNewScheduler_RejectsMisconfiguration verifies construction fails
// fast instead of deferring misconfiguration to call time.
func TestNewScheduler_RejectsMisconfiguration(t *testing.T) {
	if _, err := NewScheduler(DefaultConfig(0), nil, nil); err == nil {
		t.Error("zero partitions should fail construction")
	}
	cfg := DefaultConfig(4)
	cfg.SuccessDecay = 1.5
	if _, err := NewScheduler(cfg, nil, nil); err == nil {
		t.Error("decay > 1 should fail construction")
	}
}

// TestScheduler_SweepCoversAllPartitions verifies the initial sweep queue
// guarantees explorer routes never revisit a partition while unused
// partitions remain.
func TestScheduler_SweepCoversAllPartitions(t *testing.T) {
	const n = 5
	cfg := testConfig(n)
	cfg.BaseExplorerProb = MaxExplorerProb // force mostly-explorer routing
	s, err := NewScheduler(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[int]bool)
	for i := 0; i < 200 && len(seen) < n; i++ {
		remaining := s.Snapshot().LeastRecentRemain
		d := s.Route(CallMeta{})
		if d.Kind == RouteExplorer && remaining > 0 && seen[d.Partition] {
			t.Fatalf("step %d: explorer revisited partition %d with %d unused partitions remaining",
				i, d.Partition, remaining)
		}
		seen[d.Partition] = true
	}
	if len(seen) != n {
		t.Errorf("not all partitions covered: %v", seen)
	}
	if got := s.Snapshot().LeastRecentRemain; got != 0 {
		t.Errorf("sweep queue should be drained, %d remaining", got)
	}
}

// TestScheduler_AgeMonotonic verifies that a partition not selected for k
// consecutive steps ages by exactly k.
func TestScheduler_AgeMonotonic(t *testing.T) {
	s, err := NewScheduler(testConfig(3), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	before := s.Snapshot()
	for i := 0; i < 30; i++ {
		d := s.Route(CallMeta{})
		after := s.Snapshot()
		for id, snap := range after.Partitions {
			if id == d.Partition {
				continue
			}
			if want := before.Partitions[id].Age + 1; snap.Age != want {
				t.Fatalf("step %d: partition %d age %d, want %d", i, id, snap.Age, want)
			}
		}
		before = after
	}
}

// TestScheduler_BoundsUnderFeedbackStorm verifies dynamicExplorerProb and
// qualityEMA stay inside their bounds at every observation point.
func TestScheduler_BoundsUnderFeedbackStorm(t *testing.T) {
	const n = 4
	s, err := NewScheduler(testConfig(n), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	rng := NewPartitionedRNG(99).ForSubsystem(SubsystemWorkload)
	for i := 0; i < 500; i++ {
		d := s.Route(CallMeta{})
		s.Feedback(FeedbackEvent{
			Partition:  d.Partition,
			Success:    rng.Float64() < 0.5,
			LatencyMs:  rng.Float64() * 400,
			HasLatency: true,
			Quality:    rng.Float64() * 5,
			HasQuality: true,
		}, CallMeta{})

		snap := s.Snapshot()
		if snap.DynamicExplorerProb < 0 || snap.DynamicExplorerProb > MaxExplorerProb {
			t.Fatalf("step %d: dynamicExplorerProb %v out of [0, %v]",
				i, snap.DynamicExplorerProb, MaxExplorerProb)
		}
		for id, p := range snap.Partitions {
			if p.QualityEMA < QualityMin || p.QualityEMA > QualityMax {
				t.Fatalf("step %d: partition %d qualityEMA %v out of [%v, %v]",
					i, id, p.QualityEMA, QualityMin, QualityMax)
			}
			if p.SuccessEMA < 0 || p.SuccessEMA > 1 {
				t.Fatalf("step %d: partition %d successEMA %v out of [0, 1]", i, id, p.SuccessEMA)
			}
			if p.ExplorerPct < 0 || p.ExplorerPct > 1 {
				t.Fatalf("step %d: partition %d explorerPct %v out of [0, 1]", i, id, p.ExplorerPct)
			}
		}
	}
}

// TestScheduler_UnknownPartitionFeedbackIsNoop verifies invalid feedback
// is logged and ignored, never propagated.
func TestScheduler_UnknownPartitionFeedbackIsNoop(t *testing.T) {
	s, err := NewScheduler(testConfig(2), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()
	s.Feedback(FeedbackEvent{Partition: 99, Success: false}, CallMeta{})
	s.Feedback(FeedbackEvent{Partition: -1, Success: true}, CallMeta{})
	after := s.Snapshot()
	if before.DynamicExplorerProb != after.DynamicExplorerProb || before.T != after.T {
		t.Error("unknown-partition feedback mutated scheduler state")
	}
}

// slowProvider blocks until its context expires.
type slowProvider struct{}

func (slowProvider) PastFailures(ctx context.Context, _ int, _ float64) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// failingProvider always errors.
type failingProvider struct{}

func (failingProvider) PastFailures(context.Context, int, float64) (string, error) {
	return "", errors.New("retrieval backend down")
}

// TestScheduler_HistoryProviderFailureDegrades verifies a slow or failing
// provider never blocks or fails feedback processing.
func TestScheduler_HistoryProviderFailureDegrades(t *testing.T) {
	for name, provider := range map[string]HistoryProvider{
		"slow":    slowProvider{},
		"failing": failingProvider{},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(2)
			cfg.HistoryTimeout = 10 * time.Millisecond
			s, err := NewScheduler(cfg, provider, nil)
			if err != nil {
				t.Fatal(err)
			}
			// Drive successEMA below 0.4 so the provider is consulted.
			for i := 0; i < 10; i++ {
				s.Feedback(FeedbackEvent{Partition: 0, Success: false}, CallMeta{})
			}
			snap := s.Snapshot()
			if snap.Partitions[0].SuccessEMA >= 0.4 {
				t.Fatalf("successEMA should be depressed, got %v", snap.Partitions[0].SuccessEMA)
			}
		})
	}
}

// TestScheduler_EndToEndExplorerFailureBias runs the full control loop:
// every EXPLORER route fails slowly, every PRIMARY route succeeds fast.
// Sustained explorer failures must leave the exploration probability
// strictly above baseline, and every partition must have been routed.
func TestScheduler_EndToEndExplorerFailureBias(t *testing.T) {
	const n = 5
	cfg := testConfig(n)
	cfg.BaseExplorerProb = 0.2
	s, err := NewScheduler(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		d := s.Route(CallMeta{})
		fb := FeedbackEvent{Partition: d.Partition, HasLatency: true}
		if d.Kind == RouteExplorer {
			fb.Success = false
			fb.LatencyMs = 200
		} else {
			fb.Success = true
			fb.LatencyMs = 50
		}
		s.Feedback(fb, CallMeta{})
	}

	snap := s.Snapshot()
	if snap.DynamicExplorerProb <= cfg.BaseExplorerProb {
		t.Errorf("sustained explorer failures should elevate exploration: got %v, base %v",
			snap.DynamicExplorerProb, cfg.BaseExplorerProb)
	}
	for id, p := range snap.Partitions {
		if p.Hits < 1 {
			t.Errorf("partition %d never routed", id)
		}
	}
	if snap.T != 100 {
		t.Errorf("step counter: got %d, want 100", snap.T)
	}
}

// TestScheduler_Deterministic verifies two schedulers with the same seed
// and call sequence produce identical decisions.
func TestScheduler_Deterministic(t *testing.T) {
	s1, _ := NewScheduler(testConfig(4), nil, nil)
	s2, _ := NewScheduler(testConfig(4), nil, nil)

	for i := 0; i < 50; i++ {
		d1 := s1.Route(CallMeta{})
		d2 := s2.Route(CallMeta{})
		if d1 != d2 {
			t.Fatalf("step %d: %+v != %+v", i, d1, d2)
		}
		fb := FeedbackEvent{Partition: d1.Partition, Success: i%3 != 0, LatencyMs: 80, HasLatency: true}
		s1.Feedback(fb, CallMeta{})
		s2.Feedback(fb, CallMeta{})
	}
}

package sched

import (
	"context"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/swarmroute/swarmroute/sched/recorder"
)

// RouteKind distinguishes the two routing modes.
type RouteKind string

const (
	// RoutePrimary exploits: weighted draw favoring fresh, high-quality
	// partitions.
	RoutePrimary RouteKind = "PRIMARY"
	// RouteExplorer explores: sweeps unused partitions first, then chases
	// novelty.
	RouteExplorer RouteKind = "EXPLORER"
)

// Decision is the outcome of one Route call.
type Decision struct {
	Partition int       `json:"partitionId"`
	Kind      RouteKind `json:"swarmType"`
}

// CallMeta carries optional caller identity, recorded on events and
// otherwise ignored by the scheduler.
type CallMeta struct {
	SessionID string
	UserHash  string
}

// FeedbackEvent reports the outcome of a routed work item. LatencyMs and
// Quality are optional; the Has flags mark presence.
type FeedbackEvent struct {
	Partition  int
	Success    bool
	LatencyMs  float64
	HasLatency bool
	Quality    float64
	HasQuality bool
}

// PartitionSnapshot is the externally visible view of one partition.
type PartitionSnapshot struct {
	Hits         uint64  `json:"hits"`
	ExplorerPct  float64 `json:"explorerPct"`
	SuccessEMA   float64 `json:"successEMA"`
	QualityEMA   float64 `json:"qualityEMA"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
	HasLatency   bool    `json:"hasLatency"`
	Age          int64   `json:"age"`
}

// Snapshot is the externally visible view of the whole scheduler.
type Snapshot struct {
	T                   int64                     `json:"t"`
	DynamicExplorerProb float64                   `json:"dynamicExplorerProb"`
	Partitions          map[int]PartitionSnapshot `json:"partitions"`
	LeastRecentRemain   int                       `json:"leastRecentRemaining"`
}

// Scheduler routes work items across a fixed set of partitions and
// re-balances from success/latency feedback. Route, Feedback and Snapshot
// serialize on an internal mutex: both routing and feedback read-then-write
// partition ages and the sweep queue, so unsynchronized callers would
// corrupt the age invariant. Calls are short critical sections; the only
// I/O inside is the time-bounded history lookup.
type Scheduler struct {
	mu  sync.Mutex
	cfg Config

	telemetry           []*PartitionTelemetry
	t                   int64
	dynamicExplorerProb float64

	// leastRecent is the initial sweep queue: every partition id once,
	// drained as partitions are first chosen, never refilled. After it
	// empties, EXPLORER selection falls back to the novelty score.
	leastRecent []int

	rng       *rand.Rand
	weightSrc *exprand.Rand

	hook    *AdjustmentHook
	history HistoryProvider
	rec     *recorder.Recorder

	lastSnapshotStep int64
	lastSnapshotProb float64
}

// NewScheduler builds a scheduler from cfg. history and rec may be nil:
// a nil history provider skips narrative lookups, a nil recorder drops
// all events. Returns an error on misconfiguration; this is the only
// failure path — all runtime degradation is handled internally.
func NewScheduler(cfg Config, history HistoryProvider, rec *recorder.Recorder) (*Scheduler, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	telemetry := make([]*PartitionTelemetry, cfg.Partitions)
	leastRecent := make([]int, cfg.Partitions)
	for i := range telemetry {
		telemetry[i] = newPartitionTelemetry()
		leastRecent[i] = i
	}

	prng := NewPartitionedRNG(cfg.Seed)
	return &Scheduler{
		cfg:                 cfg,
		telemetry:           telemetry,
		dynamicExplorerProb: cfg.BaseExplorerProb,
		leastRecent:         leastRecent,
		rng:                 prng.ForSubsystem(SubsystemScheduler),
		weightSrc:           prng.SourceFor(SubsystemWeights),
		hook:                NewAdjustmentHook(cfg.Partitions, cfg.FeedbackWindow, cfg.ExplorerMaxStep),
		history:             history,
		rec:                 rec,
		lastSnapshotProb:    cfg.BaseExplorerProb,
	}, nil
}

// Route picks the partition for the next work item.
func (s *Scheduler) Route(meta CallMeta) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := RoutePrimary
	if s.rng.Float64() < s.dynamicExplorerProb {
		kind = RouteExplorer
	}

	var p int
	if kind == RouteExplorer {
		p = s.selectExplorer()
	} else {
		p = s.selectPrimary()
	}

	tel := s.telemetry[p]
	tel.Hits++
	if kind == RouteExplorer {
		tel.ExplorerHits++
	}
	tel.LastUsedStep = s.t
	s.dropFromSweep(p)
	s.t++

	logrus.Debugf("route: t=%d partition=%d kind=%s prob=%.3f", s.t-1, p, kind, s.dynamicExplorerProb)
	ev := recorder.Event{
		"eventType":   "route",
		"partitionId": p,
		"swarmType":   string(kind),
		"step":        s.t - 1,
	}
	addMeta(ev, meta)
	s.rec.LogEvent(ev)

	s.maybeEmitSnapshot()

	return Decision{Partition: p, Kind: kind}
}

// selectExplorer pops the sweep queue, falling back to the highest-novelty
// partition (ties broken by lowest id) once the queue is drained.
func (s *Scheduler) selectExplorer() int {
	if len(s.leastRecent) > 0 {
		return s.leastRecent[0]
	}
	best := 0
	bestScore := -1.0
	for i, tel := range s.telemetry {
		if score := tel.novelty(); score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// selectPrimary draws a partition with probability proportional to
// min(age, MaxAgeWeight) * (qualityEMA + 0.1). Age guarantees every
// partition is eventually revisited regardless of quality.
func (s *Scheduler) selectPrimary() int {
	weights := make([]float64, len(s.telemetry))
	for i, tel := range s.telemetry {
		age := tel.age(s.t)
		if age > int64(s.cfg.MaxAgeWeight) {
			age = int64(s.cfg.MaxAgeWeight)
		}
		weights[i] = float64(age) * (tel.QualityEMA + 0.1)
	}

	if idx, ok := sampleuv.NewWeighted(weights, s.weightSrc).Take(); ok {
		return idx
	}
	// Degenerate weights; fall back to the heaviest entry.
	best := 0
	for i, w := range weights {
		if w > weights[best] {
			best = i
		}
	}
	return best
}

func (s *Scheduler) dropFromSweep(p int) {
	for i, id := range s.leastRecent {
		if id == p {
			s.leastRecent = append(s.leastRecent[:i], s.leastRecent[i+1:]...)
			return
		}
	}
}

// maybeEmitSnapshot emits a periodic scheduler snapshot event with the
// delta since the previous one. Called with the lock held, after t++.
func (s *Scheduler) maybeEmitSnapshot() {
	if s.cfg.SnapshotInterval <= 0 || s.t%int64(s.cfg.SnapshotInterval) != 0 {
		return
	}
	s.rec.LogEvent(recorder.Event{
		"eventType":           "scheduler_snapshot",
		"step":                s.t,
		"dynamicExplorerProb": s.dynamicExplorerProb,
		"sweepQueueDepth":     len(s.leastRecent),
		"stepsSincePrevious":  s.t - s.lastSnapshotStep,
		"probDelta":           s.dynamicExplorerProb - s.lastSnapshotProb,
	})
	s.lastSnapshotStep = s.t
	s.lastSnapshotProb = s.dynamicExplorerProb
}

// Feedback folds an observed outcome into telemetry and applies the
// hook's bounded adjustments. Unknown partition ids are logged no-ops.
func (s *Scheduler) Feedback(fb FeedbackEvent, meta CallMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fb.Partition < 0 || fb.Partition >= len(s.telemetry) {
		logrus.Warnf("feedback: unknown partition %d, ignoring", fb.Partition)
		return
	}
	tel := s.telemetry[fb.Partition]

	tel.observeSuccess(s.cfg.SuccessDecay, fb.Success)
	if fb.HasLatency {
		tel.observeLatency(fb.LatencyMs)
	}
	if fb.HasQuality {
		tel.observeQuality(s.cfg.QualityDecay, fb.Quality)
	}
	s.hook.Observe(fb.Partition, fb.Success, fb.LatencyMs, fb.HasLatency)

	snap := FeedbackSnapshot{
		SuccessEMA:          tel.SuccessEMA,
		QualityEMA:          tel.QualityEMA,
		AvgLatencyMs:        tel.AvgLatencyMs,
		HasLatency:          tel.HasLatency,
		ExplorerRatio:       tel.explorerRatio(),
		AgeSteps:            tel.age(s.t),
		DynamicExplorerProb: s.dynamicExplorerProb,
		BaseExplorerProb:    s.cfg.BaseExplorerProb,
		LastSuccess:         fb.Success,
		HistoryClass:        HistoryNone,
	}

	if !fb.Success && tel.SuccessEMA < 0.4 {
		snap.HistoryContext, snap.HistoryClass = s.consultHistory(fb.Partition, tel.SuccessEMA)
	}

	qualityDelta, explorerDelta := s.hook.Adjust(fb.Partition, snap)
	tel.adjustQuality(qualityDelta)
	s.applyExplorerDelta(explorerDelta)

	// Success decay-back: once partitions recover, elevated exploration
	// shrinks toward baseline instead of persisting forever.
	if fb.Success && s.dynamicExplorerProb > s.cfg.BaseExplorerProb+0.05 {
		shrink := (s.dynamicExplorerProb - s.cfg.BaseExplorerProb) * 0.25
		if shrink > 0.02 {
			shrink = 0.02
		}
		s.dynamicExplorerProb -= shrink
		if floor := s.cfg.BaseExplorerProb + 0.01; s.dynamicExplorerProb < floor {
			s.dynamicExplorerProb = floor
		}
	}

	ev := recorder.Event{
		"eventType":           "feedback",
		"partitionId":         fb.Partition,
		"success":             fb.Success,
		"successEMA":          tel.SuccessEMA,
		"qualityEMA":          tel.QualityEMA,
		"qualityDelta":        qualityDelta,
		"explorerDelta":       explorerDelta,
		"dynamicExplorerProb": s.dynamicExplorerProb,
	}
	if fb.HasLatency {
		ev["latencyMs"] = fb.LatencyMs
	}
	if snap.HistoryClass != HistoryNone {
		ev["historyClass"] = string(snap.HistoryClass)
		ev["historicalContext"] = snap.HistoryContext
	}
	addMeta(ev, meta)
	s.rec.LogEvent(ev)
}

// consultHistory performs the best-effort, time-bounded narrative lookup.
// Any provider error or timeout degrades to no context.
func (s *Scheduler) consultHistory(partition int, successRatio float64) (string, HistoryClass) {
	if s.history == nil {
		return "", HistoryNone
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HistoryTimeout)
	defer cancel()

	text, err := s.history.PastFailures(ctx, partition, successRatio)
	if err != nil {
		logrus.Debugf("feedback: history provider unavailable for partition %d: %v", partition, err)
		return "", HistoryNone
	}
	if text == "" {
		return "", HistoryNone
	}
	return text, ClassifyNarrative(text)
}

// applyExplorerDelta applies a hook delta to the exploration probability.
// The result stays in [0, MaxExplorerProb]. Downward adjustments walk
// elevated exploration back toward the baseline but stop at the same
// base+0.01 floor as the success decay-back, so the trim rules can never
// erase the exploration history entirely.
func (s *Scheduler) applyExplorerDelta(delta float64) {
	if delta < 0 {
		floor := s.cfg.BaseExplorerProb + 0.01
		if s.dynamicExplorerProb <= floor {
			return
		}
		s.dynamicExplorerProb += delta
		if s.dynamicExplorerProb < floor {
			s.dynamicExplorerProb = floor
		}
		return
	}
	s.dynamicExplorerProb += delta
	if s.dynamicExplorerProb > MaxExplorerProb {
		s.dynamicExplorerProb = MaxExplorerProb
	}
}

// Snapshot returns the externally visible scheduler state.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	partitions := make(map[int]PartitionSnapshot, len(s.telemetry))
	for i, tel := range s.telemetry {
		partitions[i] = PartitionSnapshot{
			Hits:         tel.Hits,
			ExplorerPct:  tel.explorerRatio(),
			SuccessEMA:   tel.SuccessEMA,
			QualityEMA:   tel.QualityEMA,
			AvgLatencyMs: tel.AvgLatencyMs,
			HasLatency:   tel.HasLatency,
			Age:          tel.age(s.t),
		}
	}
	return Snapshot{
		T:                   s.t,
		DynamicExplorerProb: s.dynamicExplorerProb,
		Partitions:          partitions,
		LeastRecentRemain:   len(s.leastRecent),
	}
}

func addMeta(ev recorder.Event, meta CallMeta) {
	if meta.SessionID != "" {
		ev["sessionId"] = meta.SessionID
	}
	if meta.UserHash != "" {
		ev["userHash"] = meta.UserHash
	}
}

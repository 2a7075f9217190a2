// Package sched implements the adaptive request-partition scheduler.
//
// # Reading Guide
//
// Start with these three files to understand the control loop:
//   - telemetry.go: per-partition counters and moving averages
//   - scheduler.go: Route/Feedback/Snapshot and the exploration probability
//   - adjust.go: the predictive adjustment hook and its bounded deltas
//
// # Architecture
//
// The sched package owns all mutable routing state behind one mutex;
// sub-packages hold the pieces that are either concurrent or pure:
//   - sched/optimizer/: the dual-strategy candidate pipeline
//   - sched/recorder/: deterministic hashing and fire-and-forget events
//
// The only external collaborator consulted on the hot path is the
// HistoryProvider, and only under a bounded timeout when a partition is
// failing. Everything else the scheduler needs lives in memory it owns.
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - HistoryProvider: narrative lookup over past incidents
//   - optimizer.Strategy: one candidate-generation heuristic
//   - recorder.Sink: event persistence
package sched

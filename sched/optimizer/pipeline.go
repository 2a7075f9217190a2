package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swarmroute/swarmroute/sched/recorder"
)

// Meta carries optional caller identity, recorded on candidate events.
type Meta struct {
	SessionID string
	UserHash  string
}

// Result is the outcome of one Optimize invocation.
type Result struct {
	Query      string           `json:"query"`
	Candidates []FusedCandidate `json:"candidates"`
	Count      int              `json:"count"`
}

// Pipeline fans a query out to its strategies concurrently and merges
// their candidates. Strategies fail independently: a panic, error or
// timeout in one contributes zero candidates and degrades the result
// instead of failing it. The merge keeps each strategy's group contiguous,
// appended in completion order; no score-based re-ranking happens here.
type Pipeline struct {
	strategies []Strategy
	budget     time.Duration
	rec        *recorder.Recorder
}

// NewPipeline builds a pipeline. budget bounds each strategy
// independently; budget <= 0 selects one second.
func NewPipeline(strategies []Strategy, budget time.Duration, rec *recorder.Recorder) *Pipeline {
	if budget <= 0 {
		budget = time.Second
	}
	return &Pipeline{strategies: strategies, budget: budget, rec: rec}
}

type strategyOutcome struct {
	name       string
	candidates []Candidate
	err        error
}

// Optimize runs every strategy for the query and returns the fused merge.
// Cancelling ctx cancels all strategies and suppresses candidate events;
// the call itself never returns an error — total strategy failure yields
// an empty result.
func (p *Pipeline) Optimize(ctx context.Context, query string, meta Meta) Result {
	outcomes := make(chan strategyOutcome, len(p.strategies))
	for _, st := range p.strategies {
		go p.runStrategy(ctx, st, query, outcomes)
	}

	var fused []FusedCandidate
	for range p.strategies {
		select {
		case <-ctx.Done():
			logrus.Debugf("optimize: cancelled for query %q", query)
			return Result{Query: query, Count: 0}
		case out := <-outcomes:
			if out.err != nil {
				p.logDegraded(query, out)
				continue
			}
			for _, c := range out.candidates {
				fused = append(fused, Fuse(query, c))
			}
		}
	}

	if ctx.Err() != nil {
		return Result{Query: query, Count: 0}
	}
	p.logCandidates(query, fused, meta)
	return Result{Query: query, Candidates: fused, Count: len(fused)}
}

// runStrategy executes one strategy under its own deadline, converting
// panics into errors so a misbehaving strategy cannot take down its
// sibling.
func (p *Pipeline) runStrategy(ctx context.Context, st Strategy, query string, outcomes chan<- strategyOutcome) {
	sctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	out := strategyOutcome{name: st.Name()}
	func() {
		defer func() {
			if r := recover(); r != nil {
				out.err = fmt.Errorf("strategy %s panicked: %v", st.Name(), r)
			}
		}()
		out.candidates, out.err = st.Run(sctx, query)
	}()
	outcomes <- out
}

func (p *Pipeline) logDegraded(query string, out strategyOutcome) {
	kind := "failure"
	if errors.Is(out.err, context.DeadlineExceeded) {
		kind = "timeout"
	}
	logrus.Warnf("optimize: strategy %s degraded (%s): %v", out.name, kind, out.err)
	p.rec.LogEvent(recorder.Event{
		"eventType": "optimize_degraded",
		"strategy":  out.name,
		"kind":      kind,
		"error":     out.err.Error(),
	})
}

func (p *Pipeline) logCandidates(query string, fused []FusedCandidate, meta Meta) {
	qh, ok := recorder.QueryHash(query)
	for _, fc := range fused {
		ev := recorder.Event{
			"eventType":      "optimize_candidate",
			"queryText":      query,
			"factors":        fc.Factors,
			"parameters":     fc.Parameters,
			"pathHash":       fc.PathHash,
			"eventEmbedding": fc.Embedding,
			"provenance":     fc.Provenance,
			"score":          fc.Score,
		}
		if ok {
			ev["queryHash"] = qh
		}
		if meta.SessionID != "" {
			ev["sessionId"] = meta.SessionID
		}
		if meta.UserHash != "" {
			ev["userHash"] = meta.UserHash
		}
		p.rec.LogEvent(ev)
	}
}

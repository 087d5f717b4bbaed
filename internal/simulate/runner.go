package simulate

import (
	"context"
	"runtime"
	"sync"

	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/engine"
)

// Runner evaluates a batch of requests against a baseline and a candidate
// policy set. Requests are independent pure computations, so the runner
// fans them out over a fixed-size worker pool and writes results into a
// pre-sized slice by request index. That keeps output order equal to input
// order regardless of completion order, without any locking on the results.
type Runner struct {
	// Workers caps parallelism. Zero or negative means GOMAXPROCS.
	Workers int
}

// Run produces one decision pair per request, index i of the output
// corresponding to input request i. On cancellation it stops dispatching
// further requests and returns the pairs completed so far (still in input
// order) together with the context error; completed pairs are valid, not
// rolled back.
func (r *Runner) Run(ctx context.Context, requests []core.AccessRequest, baseline, candidate *core.PolicySet) ([]core.DecisionPair, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(requests) {
		workers = len(requests)
	}

	base := engine.New(baseline)
	cand := engine.New(candidate)

	results := make([]core.DecisionPair, len(requests))
	done := make([]bool, len(requests))

	indexes := make(chan int)
	go func() {
		defer close(indexes)
		for i := range requests {
			select {
			case indexes <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = evaluatePair(&requests[i], base, cand)
				done[i] = true
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		completed := make([]core.DecisionPair, 0, len(results))
		for i, pair := range results {
			if done[i] {
				completed = append(completed, pair)
			}
		}
		return completed, err
	}

	return results, nil
}

// evaluatePair runs the request through both engines independently. Invalid
// requests fail closed with a warning instead of aborting the batch.
func evaluatePair(req *core.AccessRequest, baseline, candidate *engine.Engine) core.DecisionPair {
	if req.Invalid() {
		blocked := core.Decision{Outcome: core.OutcomeBlock}
		return core.DecisionPair{
			RequestID: req.ID,
			Baseline:  blocked,
			Candidate: blocked,
			Warnings:  []string{"invalid attributes: " + req.InvalidReason},
		}
	}

	return core.DecisionPair{
		RequestID: req.ID,
		Baseline:  baseline.Decide(req),
		Candidate: candidate.Decide(req),
	}
}

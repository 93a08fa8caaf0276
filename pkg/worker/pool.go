// Package worker runs the per-thread search loop — draw a configuration
// from a generator, score it against a coordination-shell matrix and
// target tensor, offer it to a local cache — and fans the per-worker
// local caches back into one ranked result.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/latticeforge/sqs/pkg/cache"
	"github.com/latticeforge/sqs/pkg/generator"
	"github.com/latticeforge/sqs/pkg/lattice"
	"github.com/latticeforge/sqs/pkg/objective"
	"github.com/latticeforge/sqs/pkg/sro"
)

// Job bundles everything one worker needs to evaluate configurations
// independently of every other worker.
type Job struct {
	Generator    generator.Generator
	ShellMatrix  *lattice.ShellMatrix
	NumSpecies   int
	ShellWeights map[int]float64
	PairWeights  [][]int
	Target       *objective.Target
	CacheSize    int
}

// Timing is one exponentially-sampled progress snapshot: elapsed wall
// time since the worker started, captured after iteration counts
// 1, 2, 4, 8, ... so a long-running worker's timing history stays a
// handful of points instead of one per iteration.
type Timing struct {
	Iteration int64
	Elapsed   time.Duration
}

// Result is one worker's contribution: its local cache, how many
// configurations it evaluated, and its timing samples.
type Result struct {
	Cache      *cache.Cache
	Iterations int64
	Timings    []Timing
}

// Run drives one job per goroutine to completion (generator exhaustion,
// or ctx cancellation) and tree-reduces the per-worker local caches into
// a single cache of the same capacity. The per-job results are returned
// too, for callers that report per-thread timing or iteration counts.
func Run(ctx context.Context, jobs []Job) (*cache.Cache, []Result) {
	results := make([]Result, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			results[i] = runOne(ctx, job)
		}(i, job)
	}
	wg.Wait()

	return treeMerge(results), results
}

func runOne(ctx context.Context, job Job) Result {
	local := cache.New(job.CacheSize)
	start := time.Now()
	var timings []Timing
	var iterations int64

	for {
		select {
		case <-ctx.Done():
			return Result{Cache: local, Iterations: iterations, Timings: timings}
		default:
		}

		config, _, ok := job.Generator.Next()
		if !ok {
			break
		}
		iterations++

		moleFractions := sro.MoleFractions(config, job.NumSpecies)
		tensor := sro.Analyze(job.ShellMatrix, config, job.NumSpecies, job.ShellWeights, moleFractions, job.PairWeights)
		score, err := objective.Score(tensor, job.Target, job.ShellWeights)
		if err != nil {
			// settings construction guarantees alignment between the
			// target tensor and the shell weights; a mismatch here is
			// a programming error, not user input, so the iteration is
			// simply skipped rather than aborting the whole worker.
			continue
		}
		local.Offer(score, config)

		if iterations&(iterations-1) == 0 {
			timings = append(timings, Timing{Iteration: iterations, Elapsed: time.Since(start)})
		}
	}

	return Result{Cache: local, Iterations: iterations, Timings: timings}
}

// treeMerge pairwise-merges worker caches down to one, halving the
// number of outstanding caches each round rather than folding them all
// into a single accumulator — the merge cost per round is bounded by
// the number of caches still standing, not by worker count squared.
func treeMerge(results []Result) *cache.Cache {
	caches := make([]*cache.Cache, len(results))
	for i, r := range results {
		caches[i] = r.Cache
	}
	if len(caches) == 0 {
		return cache.New(1)
	}
	for len(caches) > 1 {
		next := make([]*cache.Cache, 0, (len(caches)+1)/2)
		for i := 0; i+1 < len(caches); i += 2 {
			caches[i].Merge(caches[i+1])
			next = append(next, caches[i])
		}
		if len(caches)%2 == 1 {
			next = append(next, caches[len(caches)-1])
		}
		caches = next
	}
	return caches[0]
}

// TotalIterations sums the iteration counts of every worker result.
func TotalIterations(results []Result) int64 {
	var total int64
	for _, r := range results {
		total += r.Iterations
	}
	return total
}

// Package engine wires the validated settings, the lattice geometry,
// the generators, and the worker pool together into one entry point:
// Run takes a structure and a raw settings document and drives a
// search to completion. Both the REST handlers and the CLI call
// through this single path so they can never drift from each other.
package engine

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/latticeforge/sqs/pkg/cache"
	"github.com/latticeforge/sqs/pkg/generator"
	"github.com/latticeforge/sqs/pkg/lattice"
	"github.com/latticeforge/sqs/pkg/observability"
	"github.com/latticeforge/sqs/pkg/settings"
	"github.com/latticeforge/sqs/pkg/sro"
	"github.com/latticeforge/sqs/pkg/worker"
)

// Outcome is everything a caller needs to report or persist about one
// completed run.
type Outcome struct {
	Settings   *settings.IterationSettings
	Species    []string // UniqueSpecies ordinal -> symbol, indexes Entries[*].Configuration
	Entries    []cache.Entry
	Iterations int64
	Elapsed    time.Duration
	Timings    map[int][]float64

	shellMatrix *lattice.ShellMatrix
}

// Symbols translates an ordinal configuration (as stored in
// Entries[*].Configuration) into its per-site species symbols.
func (o *Outcome) Symbols(configuration []int) []string {
	out := make([]string, len(configuration))
	for i, ordinal := range configuration {
		out[i] = o.Species[ordinal]
	}
	return out
}

// Parameters recomputes the pair-SRO tensor for one of the run's own
// retained configurations (or any configuration over the same
// sublattice), reusing the run's shell matrix rather than rebuilding
// it. Callers that only have cache.Entry.Configuration on hand use
// this instead of re-deriving shell distances from scratch.
func (o *Outcome) Parameters(configuration []int) [][][]float64 {
	moleFractions := sro.MoleFractions(configuration, len(o.Species))
	tensor := sro.Analyze(o.shellMatrix, configuration, len(o.Species), o.Settings.ShellWeights, moleFractions, o.Settings.PairWeights)
	return tensor.Alpha
}

// Run validates raw against structure, builds one generator and worker
// job per thread, and drives the search to exhaustion (systematic mode)
// or its iteration budget (random mode) — or to ctx cancellation,
// whichever comes first. metrics and runID may be zero-valued; when
// metrics is nil no Prometheus series are touched.
func Run(ctx context.Context, raw settings.Raw, structure *lattice.Structure, metrics *observability.Metrics, runID string) (*Outcome, error) {
	cfg, err := settings.Build(raw, structure)
	if err != nil {
		return nil, err
	}

	shellMatrix, err := lattice.NewShellMatrix(structure, cfg.ShellDistances, cfg.Atol, cfg.Rtol)
	if err != nil {
		return nil, fmt.Errorf("engine: building shell matrix: %w", err)
	}

	base, err := generator.NewBase(parentVector(structure), cfg.Composition.Which, cfg.Composition.Counts)
	if err != nil {
		return nil, err
	}

	numThreads := resolveThreads(cfg.ThreadsPerRank)
	jobs := buildJobs(cfg, base, shellMatrix, len(structure.UniqueSpecies()), numThreads)

	if metrics != nil {
		metrics.IncActiveRuns()
		metrics.SetActiveWorkers(numThreads)
		defer metrics.DecActiveRuns()
	}

	start := time.Now()
	merged, results := worker.Run(ctx, jobs)
	elapsed := time.Since(start)

	total := worker.TotalIterations(results)
	entries := merged.Drain()

	if metrics != nil {
		mode := cfg.Mode.String()
		metrics.RecordIterations(runID, mode, total)
		metrics.RecordRunCompleted(mode, elapsed)
		stats := merged.Stats()
		metrics.RecordCacheOffers(stats.Offers, stats.Accepted, stats.Duplicates)
		metrics.UpdateCacheSize(runID, stats.Size)
		if len(entries) > 0 {
			metrics.UpdateBestObjective(runID, entries[0].Objective)
		}
	}

	return &Outcome{
		Settings:    cfg,
		Species:     structure.UniqueSpecies(),
		Entries:     entries,
		Iterations:  total,
		Elapsed:     elapsed,
		Timings:     timingSeconds(results),
		shellMatrix: shellMatrix,
	}, nil
}

func buildJobs(cfg *settings.IterationSettings, base *generator.Base, shellMatrix *lattice.ShellMatrix, numSpecies, numThreads int) []worker.Job {
	jobs := make([]worker.Job, numThreads)
	perThread := int64(0)
	if cfg.Iterations >= 0 {
		perThread = cfg.Iterations / int64(numThreads)
	}

	// perThreadBudget stripes a finite global budget across numThreads
	// threads, with the last thread absorbing the remainder so the sum
	// of per-thread trial counts matches the budget exactly. A budget
	// of -1 (unbounded) passes through unchanged to every thread.
	perThreadBudget := func(i int) int64 {
		if cfg.Iterations < 0 {
			return -1
		}
		if i == numThreads-1 {
			return cfg.Iterations - perThread*int64(numThreads-1)
		}
		return perThread
	}

	for i := 0; i < numThreads; i++ {
		var gen generator.Generator
		if cfg.Mode == settings.ModeSystematic {
			gen = generator.NewSystematic(base, i, numThreads, perThreadBudget(i))
		} else {
			seed := generator.DeriveSeed(cfg.Seed, 0, i)
			gen = generator.NewRandom(base, seed, perThreadBudget(i))
		}
		jobs[i] = worker.Job{
			Generator:    gen,
			ShellMatrix:  shellMatrix,
			NumSpecies:   numSpecies,
			ShellWeights: cfg.ShellWeights,
			PairWeights:  cfg.PairWeights,
			Target:       cfg.TargetObjective,
			CacheSize:    cfg.MaxOutputConfigurations,
		}
	}
	return jobs
}

// parentVector projects a structure's per-site species symbols onto
// the UniqueSpecies ordinal space generator.Base operates in.
func parentVector(s *lattice.Structure) []int {
	unique := s.UniqueSpecies()
	ordinal := make(map[string]int, len(unique))
	for i, sym := range unique {
		ordinal[sym] = i
	}
	species := s.Species()
	parent := make([]int, len(species))
	for i, sym := range species {
		parent[i] = ordinal[sym]
	}
	return parent
}

// Ordinals maps a per-site species-symbol configuration onto the
// UniqueSpecies ordinal space, for callers (the analysis endpoint, the
// CLI's run analysis subcommand) that are handed a configuration
// directly instead of producing one through search.
func Ordinals(s *lattice.Structure, symbols []string) ([]int, error) {
	if len(symbols) != s.NumAtoms() {
		return nil, fmt.Errorf("engine: configuration has %d sites, structure has %d", len(symbols), s.NumAtoms())
	}
	ordinal := make(map[string]int)
	for i, sym := range s.UniqueSpecies() {
		ordinal[sym] = i
	}
	out := make([]int, len(symbols))
	for i, sym := range symbols {
		v, ok := ordinal[sym]
		if !ok {
			return nil, fmt.Errorf("engine: configuration site %d names unknown species %q", i, sym)
		}
		out[i] = v
	}
	return out, nil
}

// resolveThreads turns the single-element ThreadsPerRank setting into a
// concrete worker count. -1 (and anything <= 0) means the NUM_THREADS
// environment variable when it holds a positive integer, GOMAXPROCS
// otherwise.
func resolveThreads(threadsPerRank []int) int {
	if len(threadsPerRank) == 0 || threadsPerRank[0] <= 0 {
		if n, err := strconv.Atoi(os.Getenv("NUM_THREADS")); err == nil && n > 0 {
			return n
		}
		return runtime.GOMAXPROCS(0)
	}
	return threadsPerRank[0]
}

func timingSeconds(results []worker.Result) map[int][]float64 {
	out := make(map[int][]float64, len(results))
	for i, r := range results {
		samples := make([]float64, len(r.Timings))
		for j, t := range r.Timings {
			samples[j] = t.Elapsed.Seconds()
		}
		out[i] = samples
	}
	return out
}

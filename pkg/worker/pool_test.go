package worker

import (
	"context"
	"testing"

	"github.com/latticeforge/sqs/pkg/generator"
	"github.com/latticeforge/sqs/pkg/lattice"
	"github.com/latticeforge/sqs/pkg/objective"
)

func rockSalt(t *testing.T) *lattice.Structure {
	t.Helper()
	a := 4.2
	lat := [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
	coords := [][3]float64{
		{0, 0, 0}, {0.5, 0.5, 0}, {0.5, 0, 0.5}, {0, 0.5, 0.5},
		{0.5, 0.5, 0.5}, {0, 0, 0.5}, {0, 0.5, 0}, {0.5, 0, 0},
	}
	species := []string{"Na", "Na", "Na", "Na", "Cl", "Cl", "Cl", "Cl"}
	s, err := lattice.New(lat, coords, species, [3]bool{true, true, true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestRunCoversWholeSystematicSpace(t *testing.T) {
	s := rockSalt(t)
	shellDistances := lattice.DefaultShellDistances(s, 1e-3, 1e-5)
	sm, err := lattice.NewShellMatrix(s, shellDistances, 1e-3, 1e-5)
	if err != nil {
		t.Fatalf("NewShellMatrix: %v", err)
	}

	parent := make([]int, 8)
	which := []int{0, 1, 2, 3, 4, 5, 6, 7}
	base, err := generator.NewBase(parent, which, map[int]int{0: 4, 1: 4})
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	const numThreads = 4
	shellWeights := map[int]float64{1: 1.0}
	target := &objective.Target{Shells: []int{1}, Values: [][][]float64{{{0, 0}, {0, 0}}}}

	jobs := make([]Job, numThreads)
	for t := 0; t < numThreads; t++ {
		jobs[t] = Job{
			Generator:    generator.NewSystematic(base, t, numThreads, -1),
			ShellMatrix:  sm,
			NumSpecies:   2,
			ShellWeights: shellWeights,
			PairWeights:  nil,
			Target:       target,
			CacheSize:    10,
		}
	}

	merged, results := Run(context.Background(), jobs)

	// 8!/(4!4!) = 70 distinct permutations
	if got := TotalIterations(results); got != 70 {
		t.Fatalf("TotalIterations = %d, want 70", got)
	}
	if merged.Size() == 0 {
		t.Fatal("expected merged cache to retain at least one entry")
	}
	drained := merged.Drain()
	for i := 1; i < len(drained); i++ {
		if drained[i].Objective < drained[i-1].Objective {
			t.Fatalf("Drain not sorted ascending at %d: %v", i, drained)
		}
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	s := rockSalt(t)
	shellDistances := lattice.DefaultShellDistances(s, 1e-3, 1e-5)
	sm, err := lattice.NewShellMatrix(s, shellDistances, 1e-3, 1e-5)
	if err != nil {
		t.Fatalf("NewShellMatrix: %v", err)
	}

	parent := make([]int, 8)
	which := []int{0, 1, 2, 3, 4, 5, 6, 7}
	base, err := generator.NewBase(parent, which, map[int]int{0: 4, 1: 4})
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := &objective.Target{Shells: []int{1}, Values: [][][]float64{{{0, 0}, {0, 0}}}}
	jobs := []Job{{
		Generator:    generator.NewSystematic(base, 0, 1, -1),
		ShellMatrix:  sm,
		NumSpecies:   2,
		ShellWeights: map[int]float64{1: 1.0},
		Target:       target,
		CacheSize:    10,
	}}

	_, results := Run(ctx, jobs)
	if results[0].Iterations > 1 {
		t.Fatalf("expected cancellation to stop the worker almost immediately, got %d iterations", results[0].Iterations)
	}
}

package engine

import (
	"context"
	"testing"

	"github.com/latticeforge/sqs/pkg/lattice"
	"github.com/latticeforge/sqs/pkg/observability"
	"github.com/latticeforge/sqs/pkg/settings"
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

func floatPtr(v float64) *float64 { return &v }

func TestRunSystematicExhaustsWholeSpace(t *testing.T) {
	s := rockSalt(t)
	raw := settings.Raw{
		Mode:        "systematic",
		Composition: map[string]any{"Na": float64(4), "Cl": float64(4)},
	}

	outcome, err := Run(context.Background(), raw, s, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Iterations != 70 {
		t.Fatalf("Iterations = %d, want 70 (8!/(4!4!))", outcome.Iterations)
	}
	if len(outcome.Entries) == 0 {
		t.Fatal("expected at least one retained entry")
	}
	for i := 1; i < len(outcome.Entries); i++ {
		if outcome.Entries[i].Objective < outcome.Entries[i-1].Objective {
			t.Fatalf("entries not sorted ascending at %d", i)
		}
		if outcome.Entries[i].Rank != i {
			t.Fatalf("Rank = %d, want %d", outcome.Entries[i].Rank, i)
		}
	}
}

func TestRunSystematicBudgetIsGlobalNotPerThread(t *testing.T) {
	s := rockSalt(t)
	raw := settings.Raw{
		Mode:           "systematic",
		Iterations:     floatPtr(20),
		ThreadsPerRank: float64(4),
		Composition:    map[string]any{"Na": float64(4), "Cl": float64(4)},
	}

	outcome, err := Run(context.Background(), raw, s, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Iterations != 20 {
		t.Fatalf("Iterations = %d, want 20 (global budget, not 20 per thread)", outcome.Iterations)
	}
}

func TestRunZeroIterationsReturnsEmptyResult(t *testing.T) {
	s := rockSalt(t)
	raw := settings.Raw{
		Mode:        "random",
		Iterations:  floatPtr(0),
		Composition: map[string]any{"Na": float64(4), "Cl": float64(4)},
	}

	outcome, err := Run(context.Background(), raw, s, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Iterations != 0 {
		t.Fatalf("Iterations = %d, want 0", outcome.Iterations)
	}
	if len(outcome.Entries) != 0 {
		t.Fatalf("Entries = %v, want empty", outcome.Entries)
	}
}

func TestRunRandomRespectsIterationBudget(t *testing.T) {
	s := rockSalt(t)
	raw := settings.Raw{
		Mode:        "random",
		Iterations:  floatPtr(200),
		Composition: map[string]any{"Na": float64(4), "Cl": float64(4)},
	}

	outcome, err := Run(context.Background(), raw, s, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Iterations != 200 {
		t.Fatalf("Iterations = %d, want 200", outcome.Iterations)
	}
}

func TestRunRejectsInvalidComposition(t *testing.T) {
	s := rockSalt(t)
	raw := settings.Raw{
		Composition: map[string]any{"Na": float64(3), "Cl": float64(4)},
	}
	if _, err := Run(context.Background(), raw, s, nil, ""); err == nil {
		t.Fatal("expected an error for a composition that does not sum to the sublattice size")
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	s := rockSalt(t)
	raw := settings.Raw{
		Mode:        "random",
		Iterations:  floatPtr(50),
		Composition: map[string]any{"Na": float64(4), "Cl": float64(4)},
	}
	metrics := observability.NewMetrics()

	outcome, err := Run(context.Background(), raw, s, metrics, "test-run")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Iterations != 50 {
		t.Fatalf("Iterations = %d, want 50", outcome.Iterations)
	}
}

func TestRunContextCancellationStopsEarly(t *testing.T) {
	s := rockSalt(t)
	raw := settings.Raw{
		Mode:        "systematic",
		Composition: map[string]any{"Na": float64(4), "Cl": float64(4)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := Run(ctx, raw, s, nil, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Iterations > int64(resolveThreads(nil)) {
		t.Fatalf("expected cancellation to stop quickly, got %d iterations", outcome.Iterations)
	}
}

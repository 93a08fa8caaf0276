package sro

import (
	"math"
	"testing"

	"github.com/latticeforge/sqs/pkg/lattice"
)

func cscl(t *testing.T, a float64) *lattice.Structure {
	t.Helper()
	lat := [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
	coords := [][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}}
	s, err := lattice.New(lat, coords, []string{"Cs", "Cl"}, [3]bool{true, true, true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestAnalyzeSymmetric(t *testing.T) {
	s := cscl(t, 4.12)
	shellDistances := lattice.DefaultShellDistances(s, 1e-3, 1e-5)
	sm, err := lattice.NewShellMatrix(s, shellDistances, 1e-3, 1e-5)
	if err != nil {
		t.Fatalf("NewShellMatrix: %v", err)
	}
	c := []int{0, 1}
	mf := MoleFractions(c, 2)
	tensor := Analyze(sm, c, 2, map[int]float64{1: 1.0}, mf, nil)
	for _, layer := range tensor.Alpha {
		for a := range layer {
			for b := range layer[a] {
				if layer[a][b] != layer[b][a] {
					t.Fatalf("alpha not symmetric at (%d,%d): %v != %v", a, b, layer[a][b], layer[b][a])
				}
			}
		}
	}
}

func TestAnalyzeSingleSpeciesIsZero(t *testing.T) {
	s := cscl(t, 4.12)
	shellDistances := lattice.DefaultShellDistances(s, 1e-3, 1e-5)
	sm, err := lattice.NewShellMatrix(s, shellDistances, 1e-3, 1e-5)
	if err != nil {
		t.Fatalf("NewShellMatrix: %v", err)
	}
	c := []int{0, 0}
	mf := MoleFractions(c, 1)
	tensor := Analyze(sm, c, 1, map[int]float64{1: 1.0}, mf, nil)
	for _, layer := range tensor.Alpha {
		for a := range layer {
			for b := range layer[a] {
				if math.Abs(layer[a][b]) > 1e-12 {
					t.Fatalf("single-species alpha[%d][%d] = %v, want 0", a, b, layer[a][b])
				}
			}
		}
	}
}

func TestAnalyzeExcludesZeroWeightShells(t *testing.T) {
	s := cscl(t, 4.12)
	shellDistances := lattice.DefaultShellDistances(s, 1e-3, 1e-5)
	sm, err := lattice.NewShellMatrix(s, shellDistances, 1e-3, 1e-5)
	if err != nil {
		t.Fatalf("NewShellMatrix: %v", err)
	}
	c := []int{0, 1}
	mf := MoleFractions(c, 2)
	tensor := Analyze(sm, c, 2, map[int]float64{1: 1.0, 2: 0}, mf, nil)
	if len(tensor.Shells) != 1 || tensor.Shells[0] != 1 {
		t.Fatalf("Shells = %v, want [1] (shell 2 has zero weight)", tensor.Shells)
	}
}

func TestAnalyzePairWeightsMask(t *testing.T) {
	s := cscl(t, 4.12)
	shellDistances := lattice.DefaultShellDistances(s, 1e-3, 1e-5)
	sm, err := lattice.NewShellMatrix(s, shellDistances, 1e-3, 1e-5)
	if err != nil {
		t.Fatalf("NewShellMatrix: %v", err)
	}
	c := []int{0, 1}
	mf := MoleFractions(c, 2)
	masked := [][]int{{0, 0}, {0, 0}}
	tensor := Analyze(sm, c, 2, map[int]float64{1: 1.0}, mf, masked)
	for _, layer := range tensor.Alpha {
		for a := range layer {
			for b := range layer[a] {
				if layer[a][b] != 0 {
					t.Fatalf("masked alpha[%d][%d] = %v, want 0", a, b, layer[a][b])
				}
			}
		}
	}
}

package lattice

import (
	"math"
	"testing"
)

func cscl(t *testing.T, a float64) *Structure {
	t.Helper()
	lat := [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
	coords := [][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}}
	s, err := New(lat, coords, []string{"Cs", "Cl"}, [3]bool{true, true, true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewCanonicalizesCoordinates(t *testing.T) {
	lat := [3][3]float64{{4, 0, 0}, {0, 4, 0}, {0, 0, 4}}
	coords := [][3]float64{{1.25, -0.25, 0}, {0.5, 0.5, 0.5}}
	s, err := New(lat, coords, []string{"Fe", "Cr"}, [3]bool{true, true, true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := s.FracCoords()[0]
	want := [3]float64{0.25, 0.75, 0}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("canonicalized coord = %v, want %v", got, want)
		}
	}
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	lat := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	_, err := New(lat, [][3]float64{{0, 0, 0}}, []string{"Fe", "Cr"}, [3]bool{true, true, true})
	if err == nil {
		t.Fatal("expected error for mismatched species/coords length")
	}
}

func TestNewRejectsSingularLattice(t *testing.T) {
	lat := [3][3]float64{{1, 0, 0}, {1, 0, 0}, {0, 0, 1}}
	_, err := New(lat, [][3]float64{{0, 0, 0}}, []string{"Fe"}, [3]bool{true, true, true})
	if err == nil {
		t.Fatal("expected GeometryError for singular lattice")
	}
}

func TestNewRejectsDuplicateSites(t *testing.T) {
	lat := [3][3]float64{{4, 0, 0}, {0, 4, 0}, {0, 0, 4}}
	coords := [][3]float64{{0, 0, 0}, {0, 0, 0}}
	_, err := New(lat, coords, []string{"Fe", "Cr"}, [3]bool{true, true, true})
	if err == nil {
		t.Fatal("expected GeometryError for duplicate sites")
	}
}

func TestUniqueSpeciesSortedByZ(t *testing.T) {
	s := cscl(t, 4.12)
	got := s.UniqueSpecies()
	want := []string{"Cl", "Cs"} // Z(Cl)=17 < Z(Cs)=55
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("UniqueSpecies = %v, want %v", got, want)
	}
}

func TestWithSpeciesRoundTrip(t *testing.T) {
	s := cscl(t, 4.12)
	which := []int{1}
	out, err := s.WithSpecies([]string{"Br"}, which)
	if err != nil {
		t.Fatalf("WithSpecies: %v", err)
	}
	if got := out.Species()[1]; got != "Br" {
		t.Fatalf("Species()[1] = %q, want Br", got)
	}
	if got := out.Species()[0]; got != "Cs" {
		t.Fatalf("Species()[0] = %q, want Cs (unchanged)", got)
	}
}

func TestWithSpeciesRejectsLengthMismatch(t *testing.T) {
	s := cscl(t, 4.12)
	if _, err := s.WithSpecies([]string{"Br", "I"}, []int{1}); err == nil {
		t.Fatal("expected error on length mismatch")
	}
}

func TestWithSpeciesRejectsOutOfRange(t *testing.T) {
	s := cscl(t, 4.12)
	if _, err := s.WithSpecies([]string{"Br"}, []int{5}); err == nil {
		t.Fatal("expected error on out-of-range index")
	}
}

func TestSortedIsStableByZ(t *testing.T) {
	lat := [3][3]float64{{4, 0, 0}, {0, 4, 0}, {0, 0, 4}}
	coords := [][3]float64{{0, 0, 0}, {0.25, 0, 0}, {0.5, 0, 0}, {0.75, 0, 0}}
	s, err := New(lat, coords, []string{"Fe", "Cr", "Fe", "Cr"}, [3]bool{true, true, true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := s.Sorted()
	if err != nil {
		t.Fatalf("Sorted: %v", err)
	}
	got := out.Species()
	want := []string{"Cr", "Cr", "Fe", "Fe"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sorted species = %v, want %v", got, want)
		}
	}
}

func TestSupercellTilesAtomCount(t *testing.T) {
	s := cscl(t, 4.12)
	out, err := s.Supercell(3, 3, 3)
	if err != nil {
		t.Fatalf("Supercell: %v", err)
	}
	if out.NumAtoms() != 2*27 {
		t.Fatalf("NumAtoms = %d, want %d", out.NumAtoms(), 54)
	}
}

func TestSliceOutOfRange(t *testing.T) {
	s := cscl(t, 4.12)
	if _, err := s.Slice([]int{0, 7}); err == nil {
		t.Fatal("expected error for out-of-range slice index")
	}
}

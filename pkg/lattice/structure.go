// Package lattice implements the immutable crystal Structure and the
// per-pair coordination-shell index matrix derived from it.
//
// Construction is the only place geometry is computed; everything
// returned from a Structure's public operations is itself a new,
// immutable Structure, matching the read-only lifecycle spec_full.md
// assigns to the search engine's data structures.
package lattice

import (
	"math"
	"sort"

	"github.com/latticeforge/sqs/pkg/errs"
	"gonum.org/v1/gonum/mat"
)

// Structure is an immutable crystal structure: a lattice, a set of
// fractional coordinates, and the species occupying them.
type Structure struct {
	lattice    *mat.Dense // 3x3, row-vectors, Angstrom
	fracCoords [][3]float64
	species    []string
	pbc        [3]bool

	numbers       []int
	uniqueSpecies []string
}

// New constructs a Structure, canonicalizing fractional coordinates modulo
// 1 on every periodic axis. It fails with a GeometryError if the lattice
// is singular, if any two sites coincide within 1e-6, or if the structure
// is empty; it fails with a BadSettings error if the coordinate/species
// slices disagree in length.
func New(latticeRows [3][3]float64, fracCoords [][3]float64, species []string, pbc [3]bool) (*Structure, error) {
	n := len(fracCoords)
	if n == 0 {
		return nil, errs.NewGeometryError("structure has no atoms")
	}
	if len(species) != n {
		return nil, errs.NewBadSettings("structure", "len(species)=%d does not match len(frac_coords)=%d", len(species), n)
	}

	data := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			data[i*3+j] = latticeRows[i][j]
		}
	}
	lat := mat.NewDense(3, 3, data)
	det := mat.Det(lat)
	if math.Abs(det) < 1e-10 {
		return nil, errs.NewGeometryError("lattice matrix is singular (det=%g)", det)
	}

	canon := make([][3]float64, n)
	for i, c := range fracCoords {
		for axis := 0; axis < 3; axis++ {
			v := c[axis]
			if pbc[axis] {
				v = v - math.Floor(v)
			}
			canon[i][axis] = v
		}
	}

	s := &Structure{
		lattice:    lat,
		fracCoords: canon,
		species:    append([]string(nil), species...),
		pbc:        pbc,
	}
	if err := s.checkDuplicates(1e-6); err != nil {
		return nil, err
	}
	s.numbers = computeNumbers(s.species)
	s.uniqueSpecies = computeUniqueSpecies(s.species)
	return s, nil
}

func computeNumbers(species []string) []int {
	numbers := make([]int, len(species))
	for i, sym := range species {
		z, _ := AtomicNumber(sym)
		numbers[i] = z
	}
	return numbers
}

func computeUniqueSpecies(species []string) []string {
	seen := make(map[string]struct{}, len(species))
	unique := make([]string, 0, len(species))
	for _, sym := range species {
		if _, ok := seen[sym]; !ok {
			seen[sym] = struct{}{}
			unique = append(unique, sym)
		}
	}
	sort.Slice(unique, func(i, j int) bool {
		zi, _ := AtomicNumber(unique[i])
		zj, _ := AtomicNumber(unique[j])
		return zi < zj
	})
	return unique
}

func (s *Structure) checkDuplicates(tol float64) error {
	cart := s.cartesianCoords()
	for i := 0; i < len(cart); i++ {
		for j := i + 1; j < len(cart); j++ {
			if minimumImageDistance(s.lattice, s.fracCoords[i], s.fracCoords[j], s.pbc) < tol {
				return errs.NewGeometryError("sites %d and %d are duplicates within tolerance %g", i, j, tol)
			}
			_ = cart
		}
	}
	return nil
}

// NumAtoms returns N, the number of sites.
func (s *Structure) NumAtoms() int { return len(s.fracCoords) }

// Species returns the species symbol occupying every site.
func (s *Structure) Species() []string { return append([]string(nil), s.species...) }

// FracCoords returns the canonicalized fractional coordinates.
func (s *Structure) FracCoords() [][3]float64 { return append([][3]float64(nil), s.fracCoords...) }

// Lattice returns the 3x3 row-vector lattice matrix.
func (s *Structure) Lattice() *mat.Dense { return mat.DenseCopyOf(s.lattice) }

// PBC returns the per-axis periodicity.
func (s *Structure) PBC() [3]bool { return s.pbc }

// Numbers returns the ordinal atomic number of every site, in site order.
func (s *Structure) Numbers() []int { return append([]int(nil), s.numbers...) }

// UniqueSpecies returns the distinct species symbols present, sorted
// ascending by atomic number.
func (s *Structure) UniqueSpecies() []string { return append([]string(nil), s.uniqueSpecies...) }

func (s *Structure) cartesianCoords() [][3]float64 {
	out := make([][3]float64, len(s.fracCoords))
	for i, f := range s.fracCoords {
		out[i] = fracToCart(s.lattice, f)
	}
	return out
}

func fracToCart(lattice *mat.Dense, frac [3]float64) [3]float64 {
	var v mat.VecDense
	v.MulVec(lattice.T(), mat.NewVecDense(3, frac[:]))
	return [3]float64{v.AtVec(0), v.AtVec(1), v.AtVec(2)}
}

// Slice returns a new Structure containing only the listed sites, in the
// given order, preserving the lattice.
func (s *Structure) Slice(indices []int) (*Structure, error) {
	n := s.NumAtoms()
	coords := make([][3]float64, len(indices))
	species := make([]string, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, errs.NewBadSettings("which", "index %d out of range [0,%d)", idx, n)
		}
		coords[i] = s.fracCoords[idx]
		species[i] = s.species[idx]
	}
	return New(s.latticeRows(), coords, species, s.pbc)
}

// WithSpecies returns a new Structure identical to s except that
// species[which[k]] = symbols[k] for every k. which must have the same
// length as symbols, contain only in-range indices, and must not be
// empty.
func (s *Structure) WithSpecies(symbols []string, which []int) (*Structure, error) {
	if len(symbols) != len(which) {
		return nil, errs.NewBadSettings("which", "len(symbols)=%d does not match len(which)=%d", len(symbols), len(which))
	}
	if len(symbols) == 0 {
		return nil, errs.NewBadSettings("which", "cannot create an empty structure")
	}
	n := s.NumAtoms()
	newSpecies := append([]string(nil), s.species...)
	for i, idx := range which {
		if idx < 0 || idx >= n {
			return nil, errs.NewBadSettings("which", "index %d out of range [0,%d)", idx, n)
		}
		newSpecies[idx] = symbols[i]
	}
	return New(s.latticeRows(), s.fracCoords, newSpecies, s.pbc)
}

// Sorted returns a new Structure with sites stably reordered by ascending
// atomic number.
func (s *Structure) Sorted() (*Structure, error) {
	n := s.NumAtoms()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return s.numbers[order[i]] < s.numbers[order[j]]
	})
	return s.Slice(order)
}

// Supercell returns a new Structure tiled sa x sb x sc times.
func (s *Structure) Supercell(sa, sb, sc int) (*Structure, error) {
	if sa < 1 || sb < 1 || sc < 1 {
		return nil, errs.NewBadSettings("supercell", "repetition counts must be >= 1, got (%d,%d,%d)", sa, sb, sc)
	}
	n := s.NumAtoms()
	sizes := [3]int{sa, sb, sc}
	numCells := sa * sb * sc

	scaled := mat.NewDense(3, 3, nil)
	scaled.Mul(diag(sizes), s.lattice)

	newCoords := make([][3]float64, 0, n*numCells)
	newSpecies := make([]string, 0, n*numCells)
	for ia := 0; ia < sa; ia++ {
		for ib := 0; ib < sb; ib++ {
			for ic := 0; ic < sc; ic++ {
				shift := [3]float64{
					float64(ia) / float64(sa),
					float64(ib) / float64(sb),
					float64(ic) / float64(sc),
				}
				for i := 0; i < n; i++ {
					c := s.fracCoords[i]
					newCoords = append(newCoords, [3]float64{
						c[0]/float64(sa) + shift[0],
						c[1]/float64(sb) + shift[1],
						c[2]/float64(sc) + shift[2],
					})
					newSpecies = append(newSpecies, s.species[i])
				}
			}
		}
	}

	var rows [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rows[i][j] = scaled.At(i, j)
		}
	}
	return New(rows, newCoords, newSpecies, s.pbc)
}

func diag(sizes [3]int) *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	d.Set(0, 0, float64(sizes[0]))
	d.Set(1, 1, float64(sizes[1]))
	d.Set(2, 2, float64(sizes[2]))
	return d
}

func (s *Structure) latticeRows() [3][3]float64 {
	var rows [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rows[i][j] = s.lattice.At(i, j)
		}
	}
	return rows
}

// minimumImageDistance returns the shortest distance between fractional
// points a and b under the minimum-image convention, searching the
// candidate periodic images on each periodic axis.
func minimumImageDistance(lattice *mat.Dense, a, b [3]float64, pbc [3]bool) float64 {
	best := math.Inf(1)
	shifts := [3][]int{{0}, {0}, {0}}
	for axis := 0; axis < 3; axis++ {
		if pbc[axis] {
			shifts[axis] = []int{-1, 0, 1}
		}
	}
	for _, sa := range shifts[0] {
		for _, sb := range shifts[1] {
			for _, sc := range shifts[2] {
				delta := [3]float64{
					b[0] + float64(sa) - a[0],
					b[1] + float64(sb) - a[1],
					b[2] + float64(sc) - a[2],
				}
				cart := fracToCart(lattice, delta)
				d := math.Sqrt(cart[0]*cart[0] + cart[1]*cart[1] + cart[2]*cart[2])
				if d < best {
					best = d
				}
			}
		}
	}
	return best
}

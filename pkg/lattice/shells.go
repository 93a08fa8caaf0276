package lattice

import (
	"math"
	"sort"

	"github.com/latticeforge/sqs/pkg/errs"
)

// ShellMatrix is the symmetric N x N table of coordination-shell indices,
// computed once from the minimum-image distance between every pair of
// sites. Shell 0 is reserved for the self-pair (the diagonal) and for any
// pair distance that does not cluster into one of ShellDistances.
type ShellMatrix struct {
	N              int
	Shell          [][]int
	ShellDistances []float64 // d0=0, d1, ..., dM, strictly increasing
}

// NumShells returns M, the number of non-trivial shells (excluding the
// reserved shell 0).
func (m *ShellMatrix) NumShells() int { return len(m.ShellDistances) - 1 }

// DefaultShellDistances returns the sorted list of distinct cluster
// centers of every pairwise minimum-image distance in s, under the
// tolerance rule |a-b| <= atol + rtol*max(a,b), with a leading 0
// prepended for the (unused) self-pair shell.
func DefaultShellDistances(s *Structure, atol, rtol float64) []float64 {
	n := s.NumAtoms()
	pairs := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, minimumImageDistance(s.lattice, s.fracCoords[i], s.fracCoords[j], s.pbc))
		}
	}
	return prependZero(ClusterDistances(pairs, atol, rtol))
}

// ClusterDistances groups the given (unsorted) distances into clusters
// under the tolerance rule |a-b| <= atol + rtol*max(a,b) applied to
// consecutive sorted values, and returns the sorted list of per-cluster
// medians.
func ClusterDistances(distances []float64, atol, rtol float64) []float64 {
	if len(distances) == 0 {
		return nil
	}
	sorted := append([]float64(nil), distances...)
	sort.Float64s(sorted)

	var clusters [][]float64
	current := []float64{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		v := sorted[i]
		if v-prev <= atol+rtol*math.Max(prev, v) {
			current = append(current, v)
		} else {
			clusters = append(clusters, current)
			current = []float64{v}
		}
	}
	clusters = append(clusters, current)

	centers := make([]float64, len(clusters))
	for i, c := range clusters {
		centers[i] = median(c)
	}
	return centers
}

func median(xs []float64) float64 {
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

func prependZero(distances []float64) []float64 {
	if len(distances) > 0 && distances[0] == 0 {
		return distances
	}
	out := make([]float64, 0, len(distances)+1)
	out = append(out, 0)
	out = append(out, distances...)
	return out
}

// assignShell finds the shell index s in [1, len(shellDistances)-1] whose
// center is within tolerance of d, returning 0 (the reserved/unused
// shell) if none matches.
func assignShell(d float64, shellDistances []float64, atol, rtol float64) int {
	best, bestDelta := 0, math.Inf(1)
	for s := 1; s < len(shellDistances); s++ {
		center := shellDistances[s]
		delta := math.Abs(d - center)
		if delta <= atol+rtol*center && delta < bestDelta {
			best, bestDelta = s, delta
		}
	}
	return best
}

// NewShellMatrix computes the pairwise minimum-image distance between
// every site in s and classifies it into a shell under shellDistances,
// atol and rtol. shellDistances must be strictly increasing, start at 0,
// and contain at least two entries (spec_full.md §4.G normalizes this
// before the matrix is ever built).
func NewShellMatrix(s *Structure, shellDistances []float64, atol, rtol float64) (*ShellMatrix, error) {
	if len(shellDistances) < 2 {
		return nil, errs.NewBadSettings("shell_distances", "need at least 2 entries (including the leading 0), got %d", len(shellDistances))
	}
	for i := 1; i < len(shellDistances); i++ {
		if shellDistances[i] <= shellDistances[i-1] {
			return nil, errs.NewBadSettings("shell_distances", "must be strictly increasing, got %v", shellDistances)
		}
	}

	n := s.NumAtoms()
	shell := make([][]int, n)
	for i := range shell {
		shell[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := minimumImageDistance(s.lattice, s.fracCoords[i], s.fracCoords[j], s.pbc)
			idx := assignShell(d, shellDistances, atol, rtol)
			shell[i][j] = idx
			shell[j][i] = idx
		}
	}
	return &ShellMatrix{
		N:              n,
		Shell:          shell,
		ShellDistances: append([]float64(nil), shellDistances...),
	}, nil
}

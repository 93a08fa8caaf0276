// Package generator enumerates or samples site-to-species assignments
// ("configurations") over a fixed sublattice, sharing one contract
// between the systematic (exhaustive) and random (Metropolis-like
// sampling) search modes.
package generator

import (
	"math/big"
	"sort"

	"github.com/latticeforge/sqs/pkg/errs"
)

// Generator produces a sequence of length-N configurations. Sites
// outside the sublattice always carry the parent species; only sites in
// Which are ever mutated.
type Generator interface {
	// Next returns the next configuration, a monotonic sampling index
	// (the lexicographic rank in Systematic mode, the trial count in
	// Random mode), and whether a value was produced. Next returns
	// ok=false once the generator is exhausted.
	Next() (configuration []int, index int64, ok bool)
}

// Base holds the shared, validated inputs both modes build on.
type Base struct {
	Parent []int       // length N, frozen species ordinals outside Which
	Which  []int       // the mutable sublattice W, indices into Parent
	Values []int       // distinct species ordinals present in Composition, ascending
	Counts map[int]int // species ordinal -> count over W
}

// NewBase validates and constructs the shared generator inputs.
// Composition maps a species ordinal to how many sites in which should
// carry it; the counts must sum to len(which).
func NewBase(parent []int, which []int, composition map[int]int) (*Base, error) {
	if len(which) < 2 {
		return nil, errs.NewBadSettings("which", "sublattice must contain at least 2 sites, got %d", len(which))
	}
	total := 0
	values := make([]int, 0, len(composition))
	for v, cnt := range composition {
		if cnt < 0 {
			return nil, errs.NewBadSettings("composition", "count for species ordinal %d is negative", v)
		}
		total += cnt
		if cnt > 0 {
			values = append(values, v)
		}
	}
	if total != len(which) {
		return nil, errs.NewBadSettings("composition", "counts sum to %d, want %d (len(which))", total, len(which))
	}
	sort.Ints(values)
	return &Base{
		Parent: append([]int(nil), parent...),
		Which:  append([]int(nil), which...),
		Values: values,
		Counts: composition,
	}, nil
}

// sortedVector returns the ascending-sorted multiset of species ordinals
// over the sublattice — the canonical starting point for both modes.
func (b *Base) sortedVector() []int {
	out := make([]int, 0, len(b.Which))
	for _, v := range b.Values {
		for i := 0; i < b.Counts[v]; i++ {
			out = append(out, v)
		}
	}
	return out
}

// realize places vector (length len(Which)) onto a fresh copy of Parent.
func (b *Base) realize(vector []int) []int {
	out := append([]int(nil), b.Parent...)
	for i, site := range b.Which {
		out[site] = vector[i]
	}
	return out
}

// factorials precomputes 0! .. n! once, shared by the multinomial
// coefficient computations systematic enumeration needs to unrank
// directly into the middle of the permutation space without generating
// every preceding permutation.
func factorials(n int) []*big.Int {
	f := make([]*big.Int, n+1)
	f[0] = big.NewInt(1)
	for i := 1; i <= n; i++ {
		f[i] = new(big.Int).Mul(f[i-1], big.NewInt(int64(i)))
	}
	return f
}

func multinomial(counts map[int]int, fact []*big.Int) *big.Int {
	total := 0
	for _, c := range counts {
		total += c
	}
	num := new(big.Int).Set(fact[total])
	denom := big.NewInt(1)
	for _, c := range counts {
		denom.Mul(denom, fact[c])
	}
	return num.Quo(num, denom)
}

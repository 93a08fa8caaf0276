// Package sro computes the Warren-Cowley-like pair short-range-order
// tensor for a configuration over a precomputed coordination-shell
// matrix.
package sro

import (
	"sort"

	"github.com/latticeforge/sqs/pkg/lattice"
)

// Tensor is the [shells][K][K] pair-SRO parameter array. Shells is the
// ascending list of shell indices the tensor's first axis corresponds
// to (the keys of the shell-weights map that were offered to Analyze).
type Tensor struct {
	Shells []int
	Alpha  [][][]float64 // Alpha[s][a][b], a<=b filled, symmetric
}

// At returns alpha[s][a][b] for the shell index s (not the tensor's
// internal axis position), returning 0 if s is not one of the tensor's
// shells.
func (t *Tensor) At(shell, a, b int) float64 {
	for idx, s := range t.Shells {
		if s == shell {
			return t.Alpha[idx][a][b]
		}
	}
	return 0
}

// Analyze computes the pair-SRO tensor for configuration c (length
// shellMatrix.N, values in [0,numSpecies)) over every shell with a
// strictly positive weight in shellWeights. moleFractions must have
// length numSpecies and sum to 1 (the fraction of each species ordinal
// across the full configuration). pairWeights is an optional K x K
// {0,1} mask applied after computation to zero out uninteresting
// species pairs; pass nil to keep every pair.
//
// The parameter is the symmetrized multi-component Warren-Cowley form:
// for species a,b and shell s, writing M_s for the total number of
// unordered site pairs in shell s and N_ab^s for the number of those
// pairs occupied by the unordered species pair {a,b},
//
//	expected_ab^s = M_s * x_a * x_b * (2 if a != b else 1)
//	alpha_ab^s    = 1 - N_ab^s / expected_ab^s   (0 if expected_ab^s == 0)
//
// which is symmetric in (a,b) by construction and has expectation 0
// under a random placement with the given mole fractions.
func Analyze(shellMatrix *lattice.ShellMatrix, c []int, numSpecies int, shellWeights map[int]float64, moleFractions []float64, pairWeights [][]int) *Tensor {
	shells := make([]int, 0, len(shellWeights))
	for s, w := range shellWeights {
		if w > 0 {
			shells = append(shells, s)
		}
	}
	sort.Ints(shells)

	shellOf := make(map[int]int, len(shells))
	for idx, s := range shells {
		shellOf[s] = idx
	}

	counts := make([][][]int, len(shells)) // counts[idx][a][b], a<=b
	totalPairs := make([]int, len(shells))
	for idx := range shells {
		counts[idx] = make([][]int, numSpecies)
		for a := range counts[idx] {
			counts[idx][a] = make([]int, numSpecies)
		}
	}

	n := shellMatrix.N
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := shellMatrix.Shell[i][j]
			idx, ok := shellOf[s]
			if !ok {
				continue
			}
			a, b := c[i], c[j]
			if a > b {
				a, b = b, a
			}
			counts[idx][a][b]++
			totalPairs[idx]++
		}
	}

	alpha := make([][][]float64, len(shells))
	for idx := range shells {
		alpha[idx] = make([][]float64, numSpecies)
		for a := range alpha[idx] {
			alpha[idx][a] = make([]float64, numSpecies)
		}
		m := float64(totalPairs[idx])
		for a := 0; a < numSpecies; a++ {
			for b := a; b < numSpecies; b++ {
				factor := 2.0
				if a == b {
					factor = 1.0
				}
				expected := m * moleFractions[a] * moleFractions[b] * factor
				var value float64
				if expected > 0 {
					value = 1 - float64(counts[idx][a][b])/expected
				}
				alpha[idx][a][b] = value
				alpha[idx][b][a] = value
			}
		}
	}

	if pairWeights != nil {
		for idx := range alpha {
			for a := 0; a < numSpecies; a++ {
				for b := 0; b < numSpecies; b++ {
					if pairWeights[a][b] == 0 {
						alpha[idx][a][b] = 0
					}
				}
			}
		}
	}

	return &Tensor{Shells: shells, Alpha: alpha}
}

// MoleFractions returns count(a)/len(c) for every species ordinal
// a in [0, numSpecies).
func MoleFractions(c []int, numSpecies int) []float64 {
	counts := make([]int, numSpecies)
	for _, a := range c {
		counts[a]++
	}
	fractions := make([]float64, numSpecies)
	for a, cnt := range counts {
		fractions[a] = float64(cnt) / float64(len(c))
	}
	return fractions
}

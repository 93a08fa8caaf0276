// Package objective reduces a pair-SRO tensor and a target tensor to the
// scalar objective value the search ranks configurations by.
package objective

import (
	"github.com/latticeforge/sqs/pkg/errs"
	"github.com/latticeforge/sqs/pkg/sro"
)

// Target mirrors sro.Tensor: Shells is the ascending list of shell
// indices the first axis corresponds to, Values[s][a][b] is the target
// SRO parameter for species pair (a,b) in that shell.
type Target struct {
	Shells []int
	Values [][][]float64
}

// Score computes O = sum_s w[s] * sum_{a<=b} |alpha[s,a,b] - target[s,a,b]|
// over the shells present in both alpha and shellWeights. alpha and
// target must cover the same set of shells (settings construction
// guarantees this); Score returns a GeometryError-free BadSettings if
// they do not, since that can only happen from a programming error
// upstream, not from user input.
func Score(alpha *sro.Tensor, target *Target, shellWeights map[int]float64) (float64, error) {
	if len(alpha.Shells) != len(target.Shells) {
		return 0, errs.NewBadSettings("target_objective", "shell count %d does not match alpha shell count %d", len(target.Shells), len(alpha.Shells))
	}

	var total float64
	for idx, s := range alpha.Shells {
		if target.Shells[idx] != s {
			return 0, errs.NewBadSettings("target_objective", "shell %d does not align with alpha shell %d at position %d", target.Shells[idx], s, idx)
		}
		w, ok := shellWeights[s]
		if !ok || w <= 0 {
			continue
		}
		layer, targetLayer := alpha.Alpha[idx], target.Values[idx]
		var shellSum float64
		for a := range layer {
			for b := a; b < len(layer[a]); b++ {
				diff := layer[a][b] - targetLayer[a][b]
				if diff < 0 {
					diff = -diff
				}
				shellSum += diff
			}
		}
		total += w * shellSum
	}
	return total, nil
}

// Less implements the result-cache tie-break: objectives are compared
// first, then (on a tie) the configuration ordinal vectors are compared
// lexicographically, smaller wins.
func Less(objA float64, confA []int, objB float64, confB []int) bool {
	if objA != objB {
		return objA < objB
	}
	for i := 0; i < len(confA) && i < len(confB); i++ {
		if confA[i] != confB[i] {
			return confA[i] < confB[i]
		}
	}
	return len(confA) < len(confB)
}

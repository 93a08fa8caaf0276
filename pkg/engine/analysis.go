package engine

import (
	"fmt"

	"github.com/latticeforge/sqs/pkg/lattice"
	"github.com/latticeforge/sqs/pkg/objective"
	"github.com/latticeforge/sqs/pkg/settings"
	"github.com/latticeforge/sqs/pkg/sro"
)

// AnalysisResult is the outcome of scoring one fixed configuration
// against a shell matrix, without any search.
type AnalysisResult struct {
	MoleFractions []float64
	Parameters    *sro.Tensor
	Objective     float64
}

// Analyze resolves the same shell-distance, shell-weight, pair-weight,
// and target-objective settings a search would use from raw, then
// scores the single configuration named by configurationSymbols
// against them. It never searches for a better configuration.
func Analyze(raw settings.Raw, structure *lattice.Structure, configurationSymbols []string) (*AnalysisResult, error) {
	atol, err := settings.ReadAtol(raw)
	if err != nil {
		return nil, err
	}
	rtol, err := settings.ReadRtol(raw)
	if err != nil {
		return nil, err
	}
	shellDistances, err := settings.ReadShellDistances(raw, structure, atol, rtol)
	if err != nil {
		return nil, err
	}
	shellWeights, err := settings.ReadShellWeights(raw, shellDistances)
	if err != nil {
		return nil, err
	}
	numSpecies := len(structure.UniqueSpecies())
	pairWeights, err := settings.ReadPairWeights(raw, numSpecies)
	if err != nil {
		return nil, err
	}
	target, err := settings.ReadTargetObjective(raw, shellWeights, numSpecies)
	if err != nil {
		return nil, err
	}

	shellMatrix, err := lattice.NewShellMatrix(structure, shellDistances, atol, rtol)
	if err != nil {
		return nil, fmt.Errorf("engine: building shell matrix: %w", err)
	}

	configuration, err := Ordinals(structure, configurationSymbols)
	if err != nil {
		return nil, err
	}

	moleFractions := sro.MoleFractions(configuration, numSpecies)
	tensor := sro.Analyze(shellMatrix, configuration, numSpecies, shellWeights, moleFractions, pairWeights)

	score, err := objective.Score(tensor, target, shellWeights)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		MoleFractions: moleFractions,
		Parameters:    tensor,
		Objective:     score,
	}, nil
}

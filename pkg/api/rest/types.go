package rest

import (
	"github.com/latticeforge/sqs/pkg/resultdoc"
	"github.com/latticeforge/sqs/pkg/settings"
)

// RunRequest is the body of POST /v1/run/iteration: a structure plus
// the settings document controlling the search.
type RunRequest struct {
	Structure resultdoc.StructureRecord `json:"structure"`
	Settings  settings.Raw              `json:"settings"`
}

// JobAccepted is returned immediately after a run is submitted.
type JobAccepted struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ConfigurationResult is one retained configuration from a completed run.
type ConfigurationResult struct {
	Rank          int      `json:"rank"`
	Objective     float64  `json:"objective"`
	Configuration []string `json:"configuration"`
}

// RunResult is the terminal payload of a completed run, attached to
// its job once the search finishes.
type RunResult struct {
	Mode           string                `json:"mode"`
	Iterations     int64                 `json:"iterations"`
	ElapsedSeconds float64               `json:"elapsed_seconds"`
	Configurations []ConfigurationResult `json:"configurations"`
}

// JobStatusResponse is returned by GET /v1/jobs/{id}.
type JobStatusResponse struct {
	ID     string     `json:"id"`
	State  string     `json:"state"`
	Error  string     `json:"error,omitempty"`
	Result *RunResult `json:"result,omitempty"`
}

// AnalysisRequest is the body of POST /v1/run/analysis: a structure, a
// single fixed configuration (species symbol per site), and the same
// shell/weight knobs a search would use, without any search.
type AnalysisRequest struct {
	Structure       resultdoc.StructureRecord `json:"structure"`
	Configuration   []string                  `json:"configuration"`
	Atol            *float64                  `json:"atol,omitempty"`
	Rtol            *float64                  `json:"rtol,omitempty"`
	ShellDistances  []float64                 `json:"shell_distances,omitempty"`
	ShellWeights    map[int]float64           `json:"shell_weights,omitempty"`
	PairWeights     [][]float64               `json:"pair_weights,omitempty"`
	TargetObjective any                       `json:"target_objective,omitempty"`
}

// AnalysisResponse carries the computed Warren-Cowley tensor and the
// resulting objective for the submitted configuration.
type AnalysisResponse struct {
	MoleFractions []float64     `json:"mole_fractions"`
	Parameters    [][][]float64 `json:"parameters"`
	Objective     float64       `json:"objective"`
}

// HealthResponse is returned by GET /v1/health.
type HealthResponse struct {
	Status    string `json:"status"`
	ActiveJobs int    `json:"active_jobs"`
}

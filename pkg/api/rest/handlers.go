package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/latticeforge/sqs/pkg/engine"
	"github.com/latticeforge/sqs/pkg/observability"
	"github.com/latticeforge/sqs/pkg/settings"
)

// Handler serves the search engine over HTTP, driving runs directly
// through pkg/engine rather than proxying to a separate process.
type Handler struct {
	metrics *observability.Metrics
	logger  *observability.Logger
	jobs    *jobStore
}

// NewHandler creates a new REST API handler.
func NewHandler(metrics *observability.Metrics, logger *observability.Logger) *Handler {
	return &Handler{
		metrics: metrics,
		logger:  logger,
		jobs:    newJobStore(),
	}
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:     "ok",
		ActiveJobs: h.jobs.active(),
	}, http.StatusOK)
}

// RunIteration handles POST /v1/run/iteration. It submits a search run
// and returns immediately with a job id; runs are CPU-bound and can
// take far longer than a reasonable HTTP timeout.
func (h *Handler) RunIteration(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	structure, err := req.Structure.Build()
	if err != nil {
		writeError(w, fmt.Sprintf("invalid structure: %v", err), http.StatusBadRequest)
		return
	}

	j := h.jobs.submit(req.Settings, structure, h.metrics, h.logger)

	writeJSON(w, JobAccepted{JobID: j.id, Status: string(jobPending)}, http.StatusAccepted)
}

// RunAnalysis handles POST /v1/run/analysis: computes the pair-SRO
// tensor and objective for one fixed configuration, with no search.
func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	structure, err := req.Structure.Build()
	if err != nil {
		writeError(w, fmt.Sprintf("invalid structure: %v", err), http.StatusBadRequest)
		return
	}

	raw := settings.Raw{
		Atol:            req.Atol,
		Rtol:            req.Rtol,
		ShellDistances:  req.ShellDistances,
		ShellWeights:    req.ShellWeights,
		PairWeights:     req.PairWeights,
		TargetObjective: req.TargetObjective,
	}

	result, err := engine.Analyze(raw, structure, req.Configuration)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, &AnalysisResponse{
		MoleFractions: result.MoleFractions,
		Parameters:    result.Parameters.Alpha,
		Objective:     result.Objective,
	}, http.StatusOK)
}

// GetJob handles GET /v1/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	j, ok := h.jobs.get(id)
	if !ok {
		writeError(w, fmt.Sprintf("job %q not found", id), http.StatusNotFound)
		return
	}

	state, err, outcome := j.snapshot()
	resp := JobStatusResponse{ID: id, State: string(state)}
	if err != nil {
		resp.Error = err.Error()
	}
	if outcome != nil {
		resp.Result = outcomeToResult(outcome.Settings.Mode.String(), outcome)
	}

	writeJSON(w, resp, http.StatusOK)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

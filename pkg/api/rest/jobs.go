package rest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/latticeforge/sqs/pkg/engine"
	"github.com/latticeforge/sqs/pkg/lattice"
	"github.com/latticeforge/sqs/pkg/observability"
	"github.com/latticeforge/sqs/pkg/settings"
)

type jobState string

const (
	jobPending jobState = "pending"
	jobRunning jobState = "running"
	jobDone    jobState = "done"
	jobFailed  jobState = "failed"
)

// job tracks one submitted search run. Runs are CPU-bound and can take
// anywhere from milliseconds to hours, so submission returns
// immediately and the caller polls for the outcome.
type job struct {
	id string

	mu      sync.Mutex
	state   jobState
	err     error
	outcome *engine.Outcome
}

func (j *job) snapshot() (jobState, error, *engine.Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, j.err, j.outcome
}

// jobStore holds in-memory job records for the lifetime of the daemon
// process. There is no persistence across restarts; a run that was
// in flight when the process stops must be resubmitted.
type jobStore struct {
	mu      sync.RWMutex
	jobs    map[string]*job
	counter uint64
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*job)}
}

func (s *jobStore) nextID() string {
	n := atomic.AddUint64(&s.counter, 1)
	return fmt.Sprintf("run-%d-%d", time.Now().UnixNano(), n)
}

// submit registers a job and starts it on its own goroutine.
func (s *jobStore) submit(raw settings.Raw, structure *lattice.Structure, metrics *observability.Metrics, logger *observability.Logger) *job {
	j := &job{id: s.nextID(), state: jobPending}

	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	go s.run(j, raw, structure, metrics, logger)
	return j
}

func (s *jobStore) run(j *job, raw settings.Raw, structure *lattice.Structure, metrics *observability.Metrics, logger *observability.Logger) {
	j.mu.Lock()
	j.state = jobRunning
	j.mu.Unlock()

	outcome, err := engine.Run(context.Background(), raw, structure, metrics, j.id)

	j.mu.Lock()
	if err != nil {
		j.state = jobFailed
		j.err = err
	} else {
		j.state = jobDone
		j.outcome = outcome
	}
	j.mu.Unlock()

	if logger != nil {
		if err != nil {
			logger.Error("run failed", map[string]interface{}{"job_id": j.id, "error": err.Error()})
		} else {
			logger.Info("run completed", map[string]interface{}{"job_id": j.id, "iterations": outcome.Iterations})
		}
	}
}

func (s *jobStore) get(id string) (*job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

func (s *jobStore) active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, j := range s.jobs {
		state, _, _ := j.snapshot()
		if state == jobPending || state == jobRunning {
			count++
		}
	}
	return count
}

func outcomeToResult(mode string, outcome *engine.Outcome) *RunResult {
	configs := make([]ConfigurationResult, len(outcome.Entries))
	for i, entry := range outcome.Entries {
		configs[i] = ConfigurationResult{
			Rank:          entry.Rank,
			Objective:     entry.Objective,
			Configuration: outcome.Symbols(entry.Configuration),
		}
	}
	return &RunResult{
		Mode:           mode,
		Iterations:     outcome.Iterations,
		ElapsedSeconds: outcome.Elapsed.Seconds(),
		Configurations: configs,
	}
}

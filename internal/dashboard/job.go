package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/wildhealth/cwd-dashboard/internal/stats"
	"github.com/wildhealth/cwd-dashboard/pkg/batch"
)

// JobState is the lifecycle of one load job.
type JobState string

const (
	// JobRunning means pages are being fetched.
	JobRunning JobState = "running"

	// JobDone means the dataset was replaced. A job that served the static
	// fallback is still done, with Degraded set.
	JobDone JobState = "done"

	// JobFailed means nothing usable was produced.
	JobFailed JobState = "failed"
)

// loadJob tracks one load run. Guarded by Server.mu.
type loadJob struct {
	id       string
	state    JobState
	progress batch.Progress
	failed   []int
	degraded bool
	errMsg   string
}

// Status is the wire form of a load job.
type Status struct {
	JobID          string   `json:"job_id"`
	State          JobState `json:"state"`
	Loaded         int      `json:"loaded"`
	EstimatedTotal int      `json:"estimated_total"`
	Percent        int      `json:"percent"`
	FailedOffsets  []int    `json:"failed_offsets"`
	Degraded       bool     `json:"degraded"`
	Error          string   `json:"error,omitempty"`
}

func (j *loadJob) status() Status {
	failed := j.failed
	if failed == nil {
		failed = []int{}
	}
	return Status{
		JobID:          j.id,
		State:          j.state,
		Loaded:         j.progress.Loaded,
		EstimatedTotal: j.progress.EstimatedTotal,
		Percent:        j.progress.Percent,
		FailedOffsets:  failed,
		Degraded:       j.degraded,
		Error:          j.errMsg,
	}
}

// startLoad begins a load job unless one is already running.
func (s *Server) startLoad() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job != nil && s.job.state == JobRunning {
		return "", fmt.Errorf("load %s already running", s.job.id)
	}

	s.jobSeq++
	job := &loadJob{
		id:    fmt.Sprintf("load-%d", s.jobSeq),
		state: JobRunning,
	}
	s.job = job

	go s.runLoad(job)

	return job.id, nil
}

// runLoad drives one load to completion and swaps in the resulting dataset.
func (s *Server) runLoad(job *loadJob) {
	ctx := context.Background()

	observer := func(p batch.Progress) {
		s.mu.Lock()
		job.progress = p
		s.mu.Unlock()
	}

	result, err := s.load(ctx, observer)

	switch {
	case err == nil:
		s.finishLoad(job, result, false)

	case errors.Is(err, batch.ErrNoData):
		s.logger.Warn().Err(err).Str("job", job.id).
			Msg("Load aggregated nothing; serving static fallback")

		features, ferr := s.fallbackFn()
		if ferr != nil {
			s.failLoad(job, fmt.Errorf("fallback after empty load: %w", ferr))
			return
		}
		s.finishLoad(job, &batch.Result{Features: features}, true)

	default:
		s.failLoad(job, err)
	}
}

func (s *Server) finishLoad(job *loadJob, result *batch.Result, degraded bool) {
	records := s.normalizer.Records(result.Features)
	summary := stats.Compute(records)

	s.mu.Lock()
	job.state = JobDone
	job.failed = result.Failed
	job.degraded = degraded
	s.dataset = &dataset{records: records, summary: summary, degraded: degraded}
	s.mu.Unlock()

	s.logger.Info().
		Str("job", job.id).
		Int("records", len(records)).
		Int("failed_offsets", len(result.Failed)).
		Bool("degraded", degraded).
		Msg("Load finished")
	s.logger.Info().Msg("\n" + summary.Render())
}

func (s *Server) failLoad(job *loadJob, err error) {
	s.mu.Lock()
	job.state = JobFailed
	job.errMsg = err.Error()
	s.mu.Unlock()

	s.logger.Error().Err(err).Str("job", job.id).Msg("Load failed")
}

// currentStatus returns the latest job status, or false when no load has
// ever been started.
func (s *Server) currentStatus() (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return Status{}, false
	}
	return s.job.status(), true
}

// snapshot returns the current dataset, or false when nothing is loaded.
func (s *Server) snapshot() (*dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset == nil {
		return nil, false
	}
	return s.dataset, true
}

// File: internal/provision/stats.go
package provision

import (
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/access-provisioner/internal/fault"
)

// Failure describes one record that was not provisioned.
type Failure struct {
	Identifier string     `json:"identifier"`
	Row        int        `json:"row"`
	Kind       fault.Kind `json:"kind"`
	Message    string     `json:"message"`
	Timestamp  time.Time  `json:"timestamp"`
}

// RunStats accumulates the results of one batch. Only the Runner mutates it,
// one record at a time.
type RunStats struct {
	RunID       string    `json:"run_id"`
	Total       int       `json:"total"`
	Successes   int       `json:"successes"`
	Failures    int       `json:"failures"`
	FailureList []Failure `json:"failure_list"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func newRunStats(now time.Time) *RunStats {
	return &RunStats{
		RunID:       uuid.NewString(),
		FailureList: []Failure{},
		StartedAt:   now,
	}
}

func (s *RunStats) succeed() {
	s.Successes++
}

func (s *RunStats) fail(id string, row int, err error, at time.Time) Failure {
	f := Failure{
		Identifier: id,
		Row:        row,
		Kind:       fault.KindOf(err),
		Message:    err.Error(),
		Timestamp:  at,
	}
	s.Failures++
	s.FailureList = append(s.FailureList, f)
	return f
}

// finish stamps the end time. Later calls are no-ops.
func (s *RunStats) finish(now time.Time) {
	if s.FinishedAt.IsZero() {
		s.FinishedAt = now
	}
}

// Elapsed is the wall time of the run, or zero before it finishes.
func (s *RunStats) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

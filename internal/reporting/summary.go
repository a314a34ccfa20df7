// File: internal/reporting/summary.go
package reporting

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/access-provisioner/internal/provision"
)

// Summary is the final, serializable view of a run.
type Summary struct {
	RunID          string              `json:"run_id"`
	Total          int                 `json:"total"`
	Successes      int                 `json:"successes"`
	Failures       int                 `json:"failures"`
	SuccessRate    float64             `json:"success_rate"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
	FailureList    []provision.Failure `json:"failure_list"`
}

// NewSummary aggregates stats. The success rate is a percentage rounded to
// one decimal and is zero for an empty run.
func NewSummary(stats *provision.RunStats) Summary {
	if stats == nil {
		return Summary{FailureList: []provision.Failure{}}
	}
	s := Summary{
		RunID:          stats.RunID,
		Total:          stats.Total,
		Successes:      stats.Successes,
		Failures:       stats.Failures,
		ElapsedSeconds: round(stats.Elapsed().Seconds(), 2),
		StartedAt:      stats.StartedAt,
		FinishedAt:     stats.FinishedAt,
		FailureList:    append([]provision.Failure{}, stats.FailureList...),
	}
	if stats.Total > 0 {
		s.SuccessRate = round(float64(stats.Successes)/float64(stats.Total)*100, 1)
	}
	return s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// LogSummary writes the summary to logger, one entry per failure.
func LogSummary(logger *zap.Logger, s Summary) {
	logger.Info("Run summary.",
		zap.String("run_id", s.RunID),
		zap.Int("total", s.Total),
		zap.Int("successes", s.Successes),
		zap.Int("failures", s.Failures),
		zap.Float64("success_rate", s.SuccessRate),
		zap.Float64("elapsed_seconds", s.ElapsedSeconds))
	for _, f := range s.FailureList {
		logger.Warn("Failed record.",
			zap.String("identifier", f.Identifier),
			zap.Int("row", f.Row),
			zap.String("kind", string(f.Kind)),
			zap.String("message", f.Message))
	}
}

// File: internal/provision/runner.go
package provision

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/access-provisioner/internal/browser"
	"github.com/xkilldash9x/access-provisioner/internal/config"
	"github.com/xkilldash9x/access-provisioner/internal/fault"
	"github.com/xkilldash9x/access-provisioner/internal/records"
)

// ErrRunInProgress is returned when Run is called while another run on the
// same Runner has not finished.
var ErrRunInProgress = errors.New("a provisioning run is already in progress")

// OutcomeRecorder observes the result of every record. Kind is "success" or
// the failure's fault kind.
type OutcomeRecorder interface {
	RecordOutcome(kind string, d time.Duration)
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder attaches an OutcomeRecorder.
func WithRecorder(rec OutcomeRecorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner provisions a batch of records one at a time, each in its own
// browser session, and never lets one record's failure stop the batch.
type Runner struct {
	cfg      config.RunConfiguration
	launcher browser.Launcher
	auth     *Authenticator
	workflow *Workflow
	logger   *zap.Logger
	recorder OutcomeRecorder
	now      func() time.Time

	// worker admits a single run at a time.
	worker *semaphore.Weighted
}

// NewRunner wires the authenticator and workflow for cfg.
func NewRunner(cfg config.RunConfiguration, launcher browser.Launcher, logger *zap.Logger, opts ...Option) *Runner {
	locator := NewLocator(logger)
	r := &Runner{
		cfg:      cfg,
		launcher: launcher,
		auth:     NewAuthenticator(cfg, locator, logger),
		workflow: NewWorkflow(cfg, locator, logger),
		logger:   logger.Named("runner"),
		now:      time.Now,
		worker:   semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run provisions every row of src. The returned stats are always non-nil and
// finalized, even when an error is returned, so a report can be produced.
//
// Missing credentials yield a ValidationError and an unreadable or empty
// source an InputError, both before any session opens. If ctx ends mid-run,
// the current record and every remaining one are recorded as critical
// failures and ctx's error is returned.
func (r *Runner) Run(ctx context.Context, src records.Source, creds config.Credentials) (*RunStats, error) {
	if !r.worker.TryAcquire(1) {
		return nil, ErrRunInProgress
	}
	defer r.worker.Release(1)

	stats := newRunStats(r.now())
	defer func() { stats.finish(r.now()) }()

	if err := creds.Validate(); err != nil {
		return stats, fault.Wrap(fault.ValidationError, "credentials", err)
	}

	rows, err := src.Rows(ctx)
	if err != nil {
		if fault.KindOf(err) != fault.InputError {
			err = fault.Wrap(fault.InputError, "read records", err)
		}
		r.logger.Error("Could not load records.", zap.Error(err))
		return stats, err
	}
	stats.Total = len(rows)
	r.logger.Info("Starting run.",
		zap.String("run_id", stats.RunID),
		zap.Int("records", stats.Total),
		zap.String("subgroup", r.cfg.SubgroupID),
		zap.Int("company_position", r.cfg.CompanyPosition))

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			r.abandon(rows[i:], stats, err)
			break
		}
		r.processRow(ctx, i, row, creds, stats)

		// The pause follows every record, failed or not, except the last.
		if i < len(rows)-1 {
			if err := sleep(ctx, r.cfg.Timing.InterRecord); err != nil {
				r.abandon(rows[i+1:], stats, err)
				break
			}
		}
	}

	stats.finish(r.now())
	r.logger.Info("Run finished.",
		zap.String("run_id", stats.RunID),
		zap.Int("total", stats.Total),
		zap.Int("successes", stats.Successes),
		zap.Int("failures", stats.Failures),
		zap.Duration("elapsed", stats.Elapsed()))

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("run interrupted: %w", err)
	}
	return stats, nil
}

func (r *Runner) processRow(ctx context.Context, i int, row records.Row, creds config.Credentials, stats *RunStats) {
	start := r.now()
	logger := r.logger.With(
		zap.Int("record", i+1),
		zap.Int("of", stats.Total),
		zap.String("id", row.ID()))
	logger.Info("Processing record.")

	err := row.Err
	if err == nil {
		err = r.provision(ctx, row, creds, logger)
	}

	kind := "success"
	if err != nil {
		f := stats.fail(row.ID(), row.Number, err, r.now())
		kind = string(f.Kind)
		logger.Error("Record failed.", zap.String("kind", kind), zap.Error(err))
	} else {
		stats.succeed()
		logger.Info("Record provisioned.")
	}
	if r.recorder != nil {
		r.recorder.RecordOutcome(kind, r.now().Sub(start))
	}
}

// provision runs one record in a fresh session that is closed on every path.
func (r *Runner) provision(ctx context.Context, row records.Row, creds config.Credentials, logger *zap.Logger) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic while provisioning record.", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			err = fault.New(fault.CriticalError, "provision", "panic: %v", p)
		}
	}()

	sess, err := r.launcher.Launch(ctx)
	if err != nil {
		return fault.Wrap(fault.CriticalError, "open session", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("Failed to close browser session.", zap.String("session_id", sess.ID()), zap.Error(cerr))
		}
	}()

	page := sess.Page()
	frame, err := r.auth.Login(ctx, page, creds)
	if err != nil {
		return err
	}
	out := r.workflow.Run(ctx, page, frame, row.Record)
	return out.Err
}

// abandon records rows that will not be attempted because the run was interrupted.
func (r *Runner) abandon(rows []records.Row, stats *RunStats, cause error) {
	for _, row := range rows {
		stats.fail(row.ID(), row.Number, fault.New(fault.CriticalError, "run interrupted", "not attempted: %v", cause), r.now())
	}
	if len(rows) > 0 {
		r.logger.Warn("Run interrupted; remaining records not attempted.", zap.Int("remaining", len(rows)), zap.Error(cause))
	}
}

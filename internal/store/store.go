package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/access-provisioner/internal/reporting"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the tables SaveRun writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS provisioning_runs (
    run_id          TEXT PRIMARY KEY,
    total           INTEGER NOT NULL,
    successes       INTEGER NOT NULL,
    failures        INTEGER NOT NULL,
    success_rate    DOUBLE PRECISION NOT NULL,
    elapsed_seconds DOUBLE PRECISION NOT NULL,
    started_at      TIMESTAMPTZ NOT NULL,
    finished_at     TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS provisioning_failures (
    run_id      TEXT NOT NULL REFERENCES provisioning_runs (run_id) ON DELETE CASCADE,
    identifier  TEXT NOT NULL,
    row_number  INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    message     TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL
);
`

const (
	sqlInsertRun = `
        INSERT INTO provisioning_runs (run_id, total, successes, failures, success_rate, elapsed_seconds, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	sqlRecentRuns = `
        SELECT run_id, total, successes, failures, success_rate, elapsed_seconds, started_at, finished_at
        FROM provisioning_runs
        ORDER BY started_at DESC
        LIMIT $1
    `
)

var failureColumns = []string{"run_id", "identifier", "row_number", "kind", "message", "occurred_at"}

// Store persists run summaries in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SaveRun writes the summary and its failures in one transaction.
func (s *Store) SaveRun(ctx context.Context, sum reporting.Summary) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlInsertRun,
		sum.RunID, sum.Total, sum.Successes, sum.Failures,
		sum.SuccessRate, sum.ElapsedSeconds,
		sum.StartedAt.UTC(), sum.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", sum.RunID, err)
	}

	if len(sum.FailureList) > 0 {
		if err := s.copyFailures(ctx, tx, sum); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Run persisted.", zap.String("run_id", sum.RunID), zap.Int("failures", len(sum.FailureList)))
	return nil
}

func (s *Store) copyFailures(ctx context.Context, tx pgx.Tx, sum reporting.Summary) error {
	rows := make([][]interface{}, len(sum.FailureList))
	for i, f := range sum.FailureList {
		rows[i] = []interface{}{
			sum.RunID, f.Identifier, f.Row, string(f.Kind), f.Message, f.Timestamp.UTC(),
		}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"provisioning_failures"}, failureColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy failures: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied failures count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}

// RunRecord is one row of provisioning_runs.
type RunRecord struct {
	RunID          string
	Total          int
	Successes      int
	Failures       int
	SuccessRate    float64
	ElapsedSeconds float64
	StartedAt      time.Time
	FinishedAt     time.Time
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.pool.Query(ctx, sqlRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.Total, &r.Successes, &r.Failures,
			&r.SuccessRate, &r.ElapsedSeconds, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

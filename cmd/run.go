// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/access-provisioner/internal/archive"
	"github.com/xkilldash9x/access-provisioner/internal/browser"
	"github.com/xkilldash9x/access-provisioner/internal/config"
	"github.com/xkilldash9x/access-provisioner/internal/fault"
	"github.com/xkilldash9x/access-provisioner/internal/metrics"
	"github.com/xkilldash9x/access-provisioner/internal/observability"
	"github.com/xkilldash9x/access-provisioner/internal/provision"
	"github.com/xkilldash9x/access-provisioner/internal/records"
	"github.com/xkilldash9x/access-provisioner/internal/reporting"
	"github.com/xkilldash9x/access-provisioner/internal/runlock"
	"github.com/xkilldash9x/access-provisioner/internal/store"
)

const publishTimeout = 30 * time.Second

// newLauncher is replaced in tests.
var newLauncher = func(cfg *config.Config, logger *zap.Logger) browser.Launcher {
	return browser.NewChromeLauncher(cfg.Browser, cfg.Timing.Element, logger)
}

func newRunCmd() *cobra.Command {
	var (
		recordsPath string
		envFile     string
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Provisions every account listed in a record file",
		Long: heredoc.Doc(`
			Reads the record file (xlsx or csv, eight columns with a header row)
			and registers one account per row in the access console. Each row
			gets a fresh browser. A failing row is recorded and the run moves on.

			When the run ends, or is interrupted, a report named
			report_YYYYMMDD_HHMMSS.json is written to the report directory.
		`),
		Example: heredoc.Doc(`
			provisioner run -r users.xlsx
			provisioner run -r users.csv --client-type "Rastreio/TMK" --contract-field 2
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			creds, err := config.LoadCredentials(envFile)
			if err != nil {
				return fault.Wrap(fault.InputError, "credentials", err)
			}

			runCfg, err := config.NewRunConfiguration(cfg, config.ClientType(cfg.Run.ClientType), cfg.Run.ContractField)
			if err != nil {
				return fault.Wrap(fault.ValidationError, "run configuration", err)
			}
			if _, known := config.SubgroupFor(config.ClientType(cfg.Run.ClientType)); !known {
				logger.Warn("Unknown client type; using the default subgroup.",
					zap.String("client_type", cfg.Run.ClientType),
					zap.String("subgroup", runCfg.SubgroupID),
					zap.String("known", quotedClientTypes()))
			}

			lock := runlock.New(cfg.Run.LockFile)
			if err := lock.Acquire(ctx, 0); err != nil {
				return fmt.Errorf("cannot start run: %w", err)
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("Failed to release run lock", zap.Error(err))
				}
			}()

			if cfg.Run.EventLog != "" {
				f, err := os.OpenFile(cfg.Run.EventLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("failed to open event log %s: %w", cfg.Run.EventLog, err)
				}
				defer f.Close()
				logger = observability.WithListener(logger, observability.NewJSONLinesListener(f))
			}

			collector := metrics.NewCollector()
			runner := provision.NewRunner(runCfg, newLauncher(cfg, logger), logger, provision.WithRecorder(collector))

			// A report is written even when the run aborts before the first
			// record.
			stats, runErr := runner.Run(ctx, records.NewFileSource(recordsPath), creds)
			if stats == nil {
				return runErr
			}

			summary := reporting.NewSummary(stats)
			reporting.LogSummary(logger, summary)
			printSummary(cmd.OutOrStdout(), summary)

			reportPath, err := reporting.Save(cfg.Report.Dir, cfg.Report.Format, summary)
			if err != nil {
				return errors.Join(runErr, fmt.Errorf("failed to save report: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", reportPath)

			// Publishing must survive an interrupted run.
			pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
			defer cancel()
			publish(pubCtx, cfg, summary, reportPath, collector, logger)

			return runErr
		},
	}

	runCmd.Flags().StringVarP(&recordsPath, "records", "r", "", "Record file to provision (.xlsx or .csv)")
	runCmd.Flags().StringVar(&envFile, "env-file", ".env", "Dotenv file holding APP_USERNAME and APP_PASSWORD")
	runCmd.Flags().String("client-type", "", "Client profile, one of "+quotedClientTypes()+" (overrides config/env)")
	runCmd.Flags().Int("contract-field", 0, "Contract position to select, 1 to 3 (overrides config/env)")
	runCmd.Flags().String("report-dir", "", "Directory for the run report (overrides config/env)")
	runCmd.Flags().StringP("format", "f", "", "Report format, 'json' or 'text' (overrides config/env)")
	runCmd.Flags().Bool("headless", false, "Run the browser without a window (overrides config/env)")
	runCmd.Flags().String("event-log", "", "Append every log event as JSON lines to this file")
	runCmd.Flags().String("lock-file", "", "Lock file guarding against concurrent runs (overrides config/env)")
	_ = runCmd.MarkFlagRequired("records")

	return runCmd
}

// quotedClientTypes lists the known client profiles for help and warnings.
func quotedClientTypes() string {
	types := config.ClientTypes()
	quoted := make([]string, len(types))
	for i, ct := range types {
		quoted[i] = fmt.Sprintf("%q", ct)
	}
	return strings.Join(quoted, ", ")
}

func printSummary(w io.Writer, s reporting.Summary) {
	fmt.Fprintf(w, "\nProvisioned %d of %d records (%.1f%%) in %.1fs.\n", s.Successes, s.Total, s.SuccessRate, s.ElapsedSeconds)
	for _, f := range s.FailureList {
		fmt.Fprintf(w, "  FAILED %s (row %d): %s\n", f.Identifier, f.Row, f.Message)
	}
}

// publish sends the summary to every configured sink. Failures are logged
// and never fail the run.
func publish(ctx context.Context, cfg *config.Config, s reporting.Summary, reportPath string, collector *metrics.Collector, logger *zap.Logger) {
	if cfg.Database.URL != "" {
		if err := persistRun(ctx, cfg.Database.URL, s, logger); err != nil {
			logger.Warn("Failed to persist run", zap.Error(err))
		}
	}

	if cfg.Report.S3.Bucket != "" {
		if err := archiveReport(ctx, cfg.Report.S3, reportPath, logger); err != nil {
			logger.Warn("Failed to archive report", zap.Error(err))
		}
	}

	if cfg.Metrics.PushURL != "" {
		collector.ObserveRun(s)
		if err := collector.Push(ctx, cfg.Metrics.PushURL, cfg.Metrics.Job); err != nil {
			logger.Warn("Failed to push metrics", zap.Error(err))
		}
	}
}

// openStore connects to the database and ensures the schema exists. The
// caller closes the returned pool.
func openStore(ctx context.Context, url string, logger *zap.Logger) (*store.Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize database store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool, nil
}

func persistRun(ctx context.Context, url string, s reporting.Summary, logger *zap.Logger) error {
	st, pool, err := openStore(ctx, url, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	return st.SaveRun(ctx, s)
}

func archiveReport(ctx context.Context, cfg config.S3Config, reportPath string, logger *zap.Logger) error {
	client, err := archive.NewS3Client(ctx, cfg.Region)
	if err != nil {
		return err
	}
	uploader, err := archive.NewUploader(client, cfg, logger)
	if err != nil {
		return err
	}
	_, err = uploader.Upload(ctx, reportPath)
	return err
}

// File: cmd/reports.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/access-provisioner/internal/observability"
	"github.com/xkilldash9x/access-provisioner/internal/reporting"
)

func newReportsCmd() *cobra.Command {
	var (
		limit  int
		fromDB bool
	)

	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "Lists the most recent run reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if fromDB {
				if cfg.Database.URL == "" {
					return fmt.Errorf("database URL is not configured (PROVISIONER_DATABASE_URL)")
				}
				st, pool, err := openStore(ctx, cfg.Database.URL, observability.GetLogger())
				if err != nil {
					return err
				}
				defer pool.Close()

				runs, err := st.RecentRuns(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded.")
					return nil
				}
				for _, r := range runs {
					fmt.Fprintf(out, "%s  %s  %d/%d ok (%.1f%%)  %.1fs\n",
						r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.RunID,
						r.Successes, r.Total, r.SuccessRate, r.ElapsedSeconds)
				}
				return nil
			}

			files, err := reporting.List(cfg.Report.Dir, limit)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintf(out, "No reports found in %s.\n", cfg.Report.Dir)
				return nil
			}
			for _, f := range files {
				fmt.Fprintf(out, "%s  %8d  %s\n", f.ModTime.Format("2006-01-02 15:04:05"), f.Size, f.Path)
			}
			return nil
		},
	}

	reportsCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of reports to list")
	reportsCmd.Flags().BoolVar(&fromDB, "db", false, "List runs recorded in the database instead of report files")
	reportsCmd.Flags().String("report-dir", "", "Directory holding run reports (overrides config/env)")
	return reportsCmd
}

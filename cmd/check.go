// File: cmd/check.go
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/access-provisioner/internal/config"
)

// checkClient is replaced in tests.
var checkClient = http.DefaultClient

func newCheckCmd() *cobra.Command {
	var (
		envFile string
		timeout time.Duration
	)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verifies credentials and that the console answers",
		Long: heredoc.Doc(`
			Confirms APP_PASSWORD is available and that the configured target
			URL responds with HTTP 200. Nothing is submitted to the console.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			creds, err := config.LoadCredentials(envFile)
			if err != nil {
				return err
			}
			if err := creds.Validate(); err != nil {
				fmt.Fprintf(out, "Credentials: missing (%v)\n", err)
				return err
			}
			fmt.Fprintf(out, "Credentials: ok (user %s)\n", creds.Username)

			status, err := pingTarget(cmd.Context(), cfg.Target.URL, timeout)
			if err != nil {
				fmt.Fprintf(out, "Target %s: unreachable\n", cfg.Target.URL)
				return err
			}
			if status != http.StatusOK {
				fmt.Fprintf(out, "Target %s: HTTP %d\n", cfg.Target.URL, status)
				return fmt.Errorf("target %s answered HTTP %d", cfg.Target.URL, status)
			}
			fmt.Fprintf(out, "Target %s: ok\n", cfg.Target.URL)
			return nil
		},
	}

	checkCmd.Flags().StringVar(&envFile, "env-file", ".env", "Dotenv file holding APP_USERNAME and APP_PASSWORD")
	checkCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Time to wait for the target to answer")
	return checkCmd
}

func pingTarget(ctx context.Context, url string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid target url %q: %w", url, err)
	}
	resp, err := checkClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

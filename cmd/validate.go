// File: cmd/validate.go
package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/access-provisioner/internal/records"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <record-file>",
		Short: "Checks a record file without opening a browser",
		Long: heredoc.Doc(`
			Loads the record file the same way "run" does and prints how many
			rows are ready to provision and which rows would fail validation.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := records.NewFileSource(args[0]).Rows(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			valid := 0
			for _, row := range rows {
				if row.Valid() {
					valid++
				}
			}
			fmt.Fprintf(out, "File: %s\n", args[0])
			fmt.Fprintf(out, "Records: %d\n", len(rows))
			fmt.Fprintf(out, "Valid: %d\n", valid)
			fmt.Fprintf(out, "Invalid: %d\n", len(rows)-valid)
			for _, row := range rows {
				if !row.Valid() {
					fmt.Fprintf(out, "  row %d (%s): %v\n", row.Number, row.ID(), row.Err)
				}
			}
			return nil
		},
	}
}

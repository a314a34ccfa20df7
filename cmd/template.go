// File: cmd/template.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/access-provisioner/internal/records"
)

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <file.xlsx|file.csv>",
		Short: "Writes an empty record file with the expected header",
		Long: heredoc.Doc(`
			Creates a record file holding only the header row. Fill in one row
			per account below it, keeping the eight columns in order. The first
			four (managers) may be left blank; the last four are required.
			An existing file is never overwritten.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := records.WriteTemplate(args[0]); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Template written to %s\n", args[0])
			fmt.Fprintf(out, "Columns: %s\n", strings.Join(records.Header, ", "))
			return nil
		},
	}
}

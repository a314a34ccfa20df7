// File: internal/records/template.go
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrExists is returned by WriteTemplate when path is already taken.
var ErrExists = errors.New("file already exists")

// WriteTemplate writes an empty record file holding only Header, as a workbook
// or a comma separated file depending on the extension. It never overwrites.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("cannot write template %s: %w", path, ErrExists)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return writeWorkbookTemplate(path)
	case ".csv":
		return writeCSVTemplate(path)
	default:
		return fmt.Errorf("unsupported template type %q, use .xlsx or .csv", filepath.Ext(path))
	}
}

func writeWorkbookTemplate(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := append([]string(nil), Header...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze template header: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save template %s: %w", path, err)
	}
	return nil
}

func writeCSVTemplate(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create template %s: %w", path, err)
	}
	w := csv.NewWriter(file)
	if err := w.Write(Header); err != nil {
		file.Close()
		return fmt.Errorf("failed to write template header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write template header: %w", err)
	}
	return file.Close()
}

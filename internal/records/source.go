// File: internal/records/source.go
package records

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/xkilldash9x/access-provisioner/internal/fault"
)

// Source yields the rows of a batch in their original order.
type Source interface {
	Rows(ctx context.Context) ([]Row, error)
}

// ErrEmpty is wrapped by sources that hold a header but no data rows.
var ErrEmpty = errors.New("record source has no data rows")

// ErrBlankRow marks a data row with every cell empty.
var ErrBlankRow = fault.New(fault.ValidationError, "blank row", "every cell is empty")

// FileSource reads records from an .xlsx workbook (first sheet) or a .csv file.
type FileSource struct {
	Path string
}

// NewFileSource returns a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Rows reads the whole file. Any failure to read it is an InputError.
func (s *FileSource) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		table [][]string
		err   error
	)
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		table, err = readWorkbook(s.Path)
	case ".csv", ".txt":
		table, err = readCSV(s.Path)
	default:
		return nil, fault.New(fault.InputError, "read records", "unsupported file type %q", filepath.Ext(s.Path))
	}
	if err != nil {
		return nil, fault.Wrap(fault.InputError, "read records", err)
	}
	return FromTable(table)
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var table [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		table = append(table, rec)
	}
	return table, nil
}

// sniffDelimiter picks ';' when the header line has more semicolons than commas.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

// FromTable turns a header plus data rows into Rows, one per data row. A fully
// blank row inside the table is kept as an invalid Row so totals match the
// sheet; blank rows after the last filled one are not data and are dropped.
func FromTable(table [][]string) ([]Row, error) {
	if len(table) == 0 {
		return nil, fault.Wrap(fault.InputError, "read records", ErrEmpty)
	}
	if n := nonBlankWidth(table[0]); n != Columns {
		return nil, fault.New(fault.InputError, "read records", "header has %d columns, want %d", n, Columns)
	}

	data := table[1:]
	for len(data) > 0 && blank(data[len(data)-1]) {
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return nil, fault.Wrap(fault.InputError, "read records", ErrEmpty)
	}

	rows := make([]Row, 0, len(data))
	for i, cells := range data {
		if blank(cells) {
			rows = append(rows, Row{Number: i + 1, Err: ErrBlankRow})
			continue
		}
		rec, err := Parse(cells)
		rows = append(rows, Row{Number: i + 1, Record: rec, Err: err})
	}
	return rows, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// nonBlankWidth is the width of the row ignoring trailing blank cells.
func nonBlankWidth(cells []string) int {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return n
}

// Static is an in-memory source, mostly for tests and dry runs.
type Static []Row

// Rows returns the rows, or an InputError when there are none.
func (s Static) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, fault.Wrap(fault.InputError, "read records", ErrEmpty)
	}
	out := make([]Row, len(s))
	copy(out, s)
	return out, nil
}

// NewStatic numbers recs from 1 and validates each one.
func NewStatic(recs ...Record) Static {
	s := make(Static, len(recs))
	for i, r := range recs {
		s[i] = Row{Number: i + 1, Record: r, Err: r.Validate()}
	}
	return s
}

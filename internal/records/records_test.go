// File: internal/records/records_test.go
package records

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xkilldash9x/access-provisioner/internal/fault"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "users.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func headerRow() []any {
	out := make([]any, len(Header))
	for i, h := range Header {
		out[i] = h
	}
	return out
}

func TestParse(t *testing.T) {
	t.Run("full row trims values", func(t *testing.T) {
		rec, err := Parse([]string{"m1", "m1@x", "", "", " Jane Doe ", "jdoe", "jdoe@x", " ACME "})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", rec.Name)
		assert.Equal(t, "ACME", rec.ClientFilter)
		assert.Equal(t, "m1", rec.Manager1Login)
		assert.Empty(t, rec.Manager2Login)
	})

	t.Run("blank required field", func(t *testing.T) {
		_, err := Parse([]string{"", "", "", "", "Jane", "jdoe", "   ", "ACME"})
		require.Error(t, err)
		assert.Equal(t, fault.ValidationError, fault.KindOf(err))
		assert.Contains(t, err.Error(), "email")
	})

	t.Run("short row is padded", func(t *testing.T) {
		_, err := Parse([]string{"", "", "", "", "Jane", "jdoe"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email, client_filter")
	})

	t.Run("no email format check", func(t *testing.T) {
		_, err := Parse([]string{"", "", "", "", "Jane", "jdoe", "not-an-email", "ACME"})
		assert.NoError(t, err)
	})
}

func TestRowID(t *testing.T) {
	assert.Equal(t, "jdoe", Row{Number: 3, Record: Record{Login: "jdoe"}}.ID())
	assert.Equal(t, "row-3", Row{Number: 3}.ID())
}

func TestFileSourceWorkbook(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		headerRow(),
		{"", "", "", "", "Ann", "ann", "ann@x", "C1"},
		{"", "", "", "", "", "", "", ""},
		{"g1", "g1@x", "", "", "", "bob", "bob@x", "C2"},
		{"", "", "", "", "Cid", "cid", "cid@x", "C3"},
	})

	rows, err := NewFileSource(path).Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, 1, rows[0].Number)
	assert.True(t, rows[0].Valid())

	assert.Equal(t, 2, rows[1].Number)
	assert.ErrorIs(t, rows[1].Err, ErrBlankRow)
	assert.Equal(t, "row-2", rows[1].ID())

	assert.Equal(t, 3, rows[2].Number)
	assert.False(t, rows[2].Valid())
	assert.Equal(t, "bob", rows[2].ID())
	assert.Equal(t, "g1", rows[2].Record.Manager1Login)

	assert.Equal(t, "cid", rows[3].Record.Login)
}

func TestFromTableBlankRows(t *testing.T) {
	header := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	filled := []string{"", "", "", "", "Ann", "ann", "ann@x", "C1"}
	empty := []string{"", " ", "", "", "", "", "", ""}

	t.Run("inner blank row counts as an invalid record", func(t *testing.T) {
		rows, err := FromTable([][]string{header, filled, empty, filled})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, fault.ValidationError, fault.KindOf(rows[1].Err))
		assert.Equal(t, 3, rows[2].Number)
	})

	t.Run("trailing blank rows are dropped", func(t *testing.T) {
		rows, err := FromTable([][]string{header, filled, empty, {}})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("only blank rows is empty", func(t *testing.T) {
		_, err := FromTable([][]string{header, empty, empty})
		assert.ErrorIs(t, err, ErrEmpty)
		assert.Equal(t, fault.InputError, fault.KindOf(err))
	})
}

func TestFileSourceCSV(t *testing.T) {
	dir := t.TempDir()

	t.Run("semicolon delimited with BOM", func(t *testing.T) {
		path := filepath.Join(dir, "semi.csv")
		content := "\xef\xbb\xbfloginGestor;emailGestor;loginGestor2;emailGestor2;nome;usuario;email;filtro_cliente\n" +
			";;;;Ann;ann;ann@x;C1\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		rows, err := NewFileSource(path).Rows(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Ann", rows[0].Record.Name)
	})

	t.Run("comma delimited", func(t *testing.T) {
		path := filepath.Join(dir, "comma.csv")
		content := "a,b,c,d,e,f,g,h\n,,,,Ann,ann,ann@x,C1\n,,,,Bob,bob,bob@x,C2\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		rows, err := NewFileSource(path).Rows(context.Background())
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}

func TestFileSourceInputErrors(t *testing.T) {
	dir := t.TempDir()

	headerOnly := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(headerOnly, []byte("a,b,c,d,e,f,g,h\n"), 0o600))

	wrongHeader := filepath.Join(dir, "wrong.csv")
	require.NoError(t, os.WriteFile(wrongHeader, []byte("a,b,c\n1,2,3\n"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.xlsx")},
		{"unsupported extension", filepath.Join(dir, "users.pdf")},
		{"header only", headerOnly},
		{"wrong column count", wrongHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileSource(tt.path).Rows(context.Background())
			require.Error(t, err)
			assert.Equal(t, fault.InputError, fault.KindOf(err))
		})
	}
}

func TestStatic(t *testing.T) {
	src := NewStatic(
		Record{Name: "Ann", Login: "ann", Email: "ann@x", ClientFilter: "C"},
		Record{Login: "bob", Email: "bob@x", ClientFilter: "C"},
	)
	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Valid())
	assert.False(t, rows[1].Valid())
	assert.Equal(t, 2, rows[1].Number)

	_, err = Static(nil).Rows(context.Background())
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, fault.InputError, fault.KindOf(err))
}

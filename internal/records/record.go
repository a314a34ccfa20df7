// File: internal/records/record.go
package records

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/access-provisioner/internal/fault"
)

// Columns is the number of columns every record source must carry, in this order:
// manager-1 login, manager-1 email, manager-2 login, manager-2 email,
// name, login, email, client filter.
const Columns = 8

// Header is the canonical column header written by WriteTemplate.
var Header = []string{
	"loginGestor", "emailGestor", "loginGestor2", "emailGestor2",
	"nome", "usuario", "email", "filtro_cliente",
}

// Record is one account to provision. Values are trimmed. A Record produced by
// Parse always has every required field set.
type Record struct {
	Manager1Login string
	Manager1Email string
	Manager2Login string
	Manager2Email string

	Name         string
	Login        string
	Email        string
	ClientFilter string
}

// Field is one named value of a record together with where it goes on the form.
type Field struct {
	Name  string
	Value string
}

// Optional returns the manager fields in form order, including blank ones.
func (r Record) Optional() []Field {
	return []Field{
		{"manager1_login", r.Manager1Login},
		{"manager1_email", r.Manager1Email},
		{"manager2_login", r.Manager2Login},
		{"manager2_email", r.Manager2Email},
	}
}

// Required returns the mandatory fields in form order.
func (r Record) Required() []Field {
	return []Field{
		{"name", r.Name},
		{"login", r.Login},
		{"email", r.Email},
		{"client_filter", r.ClientFilter},
	}
}

// Validate reports a ValidationError naming every blank required field.
// Email format is deliberately not checked.
func (r Record) Validate() error {
	var missing []string
	for _, f := range r.Required() {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fault.New(fault.ValidationError, "validate record", "required field(s) blank: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Parse builds a Record from one row of cells in column order. Short rows are
// padded with blanks; extra cells are ignored.
func Parse(cells []string) (Record, error) {
	padded := make([]string, Columns)
	for i := 0; i < Columns && i < len(cells); i++ {
		padded[i] = strings.TrimSpace(cells[i])
	}
	r := Record{
		Manager1Login: padded[0],
		Manager1Email: padded[1],
		Manager2Login: padded[2],
		Manager2Email: padded[3],
		Name:          padded[4],
		Login:         padded[5],
		Email:         padded[6],
		ClientFilter:  padded[7],
	}
	return r, r.Validate()
}

// Row is one data row of a source. Number is one-based over data rows,
// excluding the header. Err is set when the row failed validation.
type Row struct {
	Number int
	Record Record
	Err    error
}

// ID identifies the row in reports: the login when present, else "row-N".
func (r Row) ID() string {
	if r.Record.Login != "" {
		return r.Record.Login
	}
	return fmt.Sprintf("row-%d", r.Number)
}

// Valid reports whether the row can be provisioned.
func (r Row) Valid() bool { return r.Err == nil }

package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SemanticType is the type a raw column is coerced into
type SemanticType string

const (
	// TypeString keeps the trimmed raw text
	TypeString SemanticType = "string"
	// TypeTimestamp parses a point in time
	TypeTimestamp SemanticType = "timestamp"
	// TypeDecimal parses a decimal number, currency symbols allowed
	TypeDecimal SemanticType = "decimal"
	// TypeInteger parses a whole number
	TypeInteger SemanticType = "integer"
)

// Cell is a single table value. A cell with Valid == false is null.
type Cell struct {
	Raw     string
	Type    SemanticType
	Valid   bool
	Text    string
	Time    time.Time
	Decimal decimal.Decimal
	Int     int64
}

// StringCell builds a string cell from raw text; blank text is null
func StringCell(raw string) Cell {
	text := strings.TrimSpace(raw)
	return Cell{
		Raw:   raw,
		Type:  TypeString,
		Valid: text != "",
		Text:  text,
	}
}

// Table is a loosely structured, column-named grid of cells as read from a source.
// Operations on a Table return a new Table and leave the receiver untouched.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// NewTable builds a string-typed table. Short rows are padded with nulls and
// cells beyond the header are dropped.
func NewTable(header []string, rows [][]string) *Table {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	t := &Table{
		Columns: columns,
		Rows:    make([][]Cell, 0, len(rows)),
	}

	for _, raw := range rows {
		row := make([]Cell, len(columns))
		for i := range columns {
			if i < len(raw) {
				row[i] = StringCell(raw[i])
			} else {
				row[i] = StringCell("")
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t
}

// ColumnIndex returns the index of the named column, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Clone returns a copy whose columns and rows can be modified independently
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: make([]string, len(t.Columns)),
		Rows:    make([][]Cell, len(t.Rows)),
	}
	copy(out.Columns, t.Columns)
	for i, row := range t.Rows {
		out.Rows[i] = make([]Cell, len(row))
		copy(out.Rows[i], row)
	}
	return out
}

// Rename returns a copy of the table with columns renamed according to plan (source -> target)
func (t *Table) Rename(plan map[string]string) *Table {
	out := t.Clone()
	for i, c := range out.Columns {
		if target, ok := plan[c]; ok {
			out.Columns[i] = target
		}
	}
	return out
}

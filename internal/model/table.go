package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawTable is a tabular source as read from a sheet or file: the first row
// of values is the header, every other row is a record.
type RawTable struct {
	Kind    StreamKind
	Header  []string
	Records [][]string
}

// NewRawTable splits values into header and records. Empty input yields an
// empty table.
func NewRawTable(kind StreamKind, values [][]string) RawTable {
	t := RawTable{Kind: kind}
	if len(values) == 0 {
		return t
	}
	t.Header = values[0]
	t.Records = values[1:]
	return t
}

// Len returns the number of records.
func (t RawTable) Len() int {
	return len(t.Records)
}

// Table is an output frame handed to sinks.
type Table struct {
	Name         string
	Columns      []string
	Rows         [][]any
	HeadersValid bool
}

// NewTable creates an empty table and validates its headers.
func NewTable(name string, columns []string) *Table {
	return &Table{
		Name:         name,
		Columns:      columns,
		HeadersValid: ValidateHeaders(columns) == nil,
	}
}

// Append adds a row. The row must have one cell per column.
func (t *Table) Append(row []any) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d cells, want %d", t.Name, len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of column name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// StringRows renders every cell as text, header first.
func (t *Table) StringRows() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatCell(v)
		}
		out = append(out, cells)
	}
	return out
}

// Digest returns a stable content hash of the table. Two runs over the same
// inputs produce the same digest.
func (t *Table) Digest() string {
	payload, _ := json.Marshal(t.StringRows())
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// FormatCell renders a cell value for text-only sinks.
func FormatCell(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.Format(DateLayout)
	case Category:
		return val.String()
	case Ratio:
		if !val.Defined {
			return ""
		}
		return KeyPart(val.Value)
	default:
		return KeyPart(v)
	}
}

const forbiddenHeaderChars = `[]*?/\`

// ValidateHeaders checks that headers are non-empty, unique and free of
// characters spreadsheet tables reject.
func ValidateHeaders(headers []string) error {
	if len(headers) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidHeaders)
	}
	seen := make(map[string]struct{}, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			return fmt.Errorf("%w: column %d is blank", ErrInvalidHeaders, i+1)
		}
		if strings.ContainsAny(name, forbiddenHeaderChars) {
			return fmt.Errorf("%w: column %q contains one of %s", ErrInvalidHeaders, name, forbiddenHeaderChars)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: column %q repeated", ErrInvalidHeaders, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

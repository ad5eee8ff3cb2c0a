// Package normalize coerces raw spreadsheet cells into typed row values.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/packflow/internal/model"
)

// ErrMissingColumn is returned when a required column is absent from a
// non-empty table.
var ErrMissingColumn = errors.New("missing column")

// Kind selects how a raw cell is coerced.
type Kind int

const (
	// KindText keeps the trimmed string.
	KindText Kind = iota
	// KindCategorical produces a model.Category; blanks become unspecified.
	KindCategorical
	// KindDecimalLocale parses numbers written with a decimal comma.
	KindDecimalLocale
	// KindInteger parses whole numbers.
	KindInteger
	// KindDate parses calendar dates.
	KindDate
	// KindTime extracts HH:MM:SS clock times.
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCategorical:
		return "categorical"
	case KindDecimalLocale:
		return "decimal"
	case KindInteger:
		return "integer"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldSpec maps one source column onto a canonical field.
type FieldSpec struct {
	// Default is used when the cell is blank or fails to parse.
	Default any
	// Name is the canonical field name in the output row.
	Name string
	// Column is the source header. Matching ignores case and extra spaces.
	Column string
	// Aliases are alternative source headers.
	Aliases []string
	Kind    Kind
	// Required drops the row when the value is blank or unparsable.
	Required bool
}

// Result holds the normalized rows and the defects found on the way.
type Result struct {
	Rows    []model.Row
	Defects model.DefectReport
}

// Normalize converts every record of raw according to specs. An empty table
// yields an empty result. Fully blank records are skipped.
func Normalize(raw model.RawTable, specs []FieldSpec) (Result, error) {
	var result Result
	if raw.Len() == 0 {
		return result, nil
	}

	columns, err := resolveColumns(raw.Header, specs)
	if err != nil {
		return result, fmt.Errorf("normalize %s: %w", raw.Kind, err)
	}

	result.Rows = make([]model.Row, 0, raw.Len())
	for i, record := range raw.Records {
		if blankRecord(record) {
			continue
		}
		line := i + 2

		row := make(model.Row, len(specs)+1)
		row[model.FieldSourceLine] = line
		keep := true
		for j, spec := range specs {
			cell := cellAt(record, columns[j])
			value, cerr := coerce(spec.Kind, cell)
			if cerr == nil {
				row[spec.Name] = value
				continue
			}

			if spec.Required {
				result.Defects.Add(model.Defect{
					Stream:  raw.Kind,
					Kind:    model.DefectDroppedRow,
					Row:     line,
					Field:   spec.Name,
					Value:   cell,
					Message: cerr.Error(),
				})
				keep = false
				break
			}

			row[spec.Name] = spec.Default
			if !errors.Is(cerr, ErrBlank) {
				result.Defects.Add(model.Defect{
					Stream:  raw.Kind,
					Kind:    model.DefectFieldCoercion,
					Row:     line,
					Field:   spec.Name,
					Value:   cell,
					Message: cerr.Error(),
				})
			}
		}
		if keep {
			result.Rows = append(result.Rows, row)
		}
	}

	return result, nil
}

func coerce(kind Kind, cell string) (any, error) {
	switch kind {
	case KindCategorical:
		return model.NewCategory(cell), nil
	case KindDecimalLocale:
		return ParseDecimal(cell)
	case KindInteger:
		return ParseInteger(cell)
	case KindDate:
		return ParseDate(cell)
	case KindTime:
		return ParseClock(cell)
	default:
		s := strings.TrimSpace(cell)
		if s == "" {
			return nil, ErrBlank
		}
		return s, nil
	}
}

func resolveColumns(header []string, specs []FieldSpec) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := headerKey(h)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	columns := make([]int, len(specs))
	var missing []string
	for i, spec := range specs {
		columns[i] = -1
		for _, name := range append([]string{spec.Column}, spec.Aliases...) {
			if pos, ok := positions[headerKey(name)]; ok {
				columns[i] = pos
				break
			}
		}
		if columns[i] < 0 && spec.Required {
			missing = append(missing, spec.Column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return columns, nil
}

func headerKey(h string) string {
	return strings.ToUpper(strings.Join(strings.Fields(h), " "))
}

func cellAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func blankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Package pivot turns long category/value rows into wide rows with one
// column per vocabulary entry.
package pivot

import (
	"github.com/Veraticus/packflow/internal/aggregate"
	"github.com/Veraticus/packflow/internal/model"
)

// Spec describes one pivot.
type Spec struct {
	// Category is the field holding the label that selects the column.
	Category string
	// Value is the numeric field summed into the cell.
	Value string
	// Contingency receives values whose label is not in Vocabulary.
	Contingency string
	// Prefix is prepended to every vocabulary entry to form column names.
	Prefix     string
	GroupBy    []string
	Vocabulary []string
}

// Result is a completed pivot.
type Result struct {
	// Rows carry the GroupBy fields plus one float64 per column.
	Rows []model.Row
	// Columns lists the value columns in vocabulary order.
	Columns []string
	// Unmapped lists labels routed to the contingency column, first-seen order.
	Unmapped []string
}

// Column returns the output column name for a vocabulary entry.
func (s Spec) Column(entry string) string {
	return s.Prefix + entry
}

// Columns returns every output column in vocabulary order.
func (s Spec) Columns() []string {
	cols := make([]string, len(s.Vocabulary))
	for i, v := range s.Vocabulary {
		cols[i] = s.Column(v)
	}
	return cols
}

// Pivot sums Value per GroupBy key and Category. Every vocabulary column is
// present on every row, zero when absent, so the column set does not depend
// on which labels the batch contains.
func Pivot(rows []model.Row, spec Spec) Result {
	known := make(map[string]struct{}, len(spec.Vocabulary))
	for _, v := range spec.Vocabulary {
		known[v] = struct{}{}
	}

	result := Result{Columns: spec.Columns()}
	wide := make(map[string]model.Row)
	var order []string
	seenUnmapped := make(map[string]struct{})

	for _, r := range rows {
		k := r.Key(spec.GroupBy)
		out, ok := wide[k]
		if !ok {
			out = make(model.Row, len(spec.GroupBy)+len(result.Columns))
			for _, f := range spec.GroupBy {
				out[f] = r[f]
			}
			for _, c := range result.Columns {
				out[c] = 0.0
			}
			wide[k] = out
			order = append(order, k)
		}

		label := model.FormatCell(r[spec.Category])
		if _, ok := known[label]; !ok {
			if _, seen := seenUnmapped[label]; !seen {
				seenUnmapped[label] = struct{}{}
				result.Unmapped = append(result.Unmapped, label)
			}
			label = spec.Contingency
		}

		col := spec.Column(label)
		out[col] = out.Float(col) + r.Float(spec.Value)
	}

	result.Rows = make([]model.Row, 0, len(order))
	for _, k := range order {
		result.Rows = append(result.Rows, wide[k])
	}
	aggregate.SortRows(result.Rows, spec.GroupBy)
	return result
}

// Total returns the sum of columns on row.
func Total(row model.Row, columns []string) float64 {
	total := 0.0
	for _, c := range columns {
		total += row.Float(c)
	}
	return total
}

// Package aggregate collapses rows sharing a grouping key into one row.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/packflow/internal/model"
)

// Reducer combines the values of one field across a group.
type Reducer int

const (
	// Sum adds numeric values.
	Sum Reducer = iota
	// Count counts rows with a value in the field, or all rows when the
	// measure has no field.
	Count
	// Min keeps the smallest value (earliest date or clock time).
	Min
	// Max keeps the largest value.
	Max
	// Distinct joins the sorted distinct values with ", ".
	Distinct
	// First keeps the first non-missing value in input order.
	First
)

func (r Reducer) String() string {
	switch r {
	case Sum:
		return "sum"
	case Count:
		return "count"
	case Min:
		return "min"
	case Max:
		return "max"
	case Distinct:
		return "distinct"
	case First:
		return "first"
	default:
		return fmt.Sprintf("reducer(%d)", int(r))
	}
}

// Measure reduces Field into the output field As (Field when As is empty).
type Measure struct {
	Field   string
	As      string
	Reducer Reducer
}

func (m Measure) output() string {
	if m.As != "" {
		return m.As
	}
	return m.Field
}

// Spec describes one aggregation.
type Spec struct {
	Stream   model.StreamKind
	GroupBy  []string
	Measures []Measure
}

// Result holds the aggregated rows, sorted by group key, and the rows that
// were excluded for lacking a grouping value.
type Result struct {
	Rows    []model.Row
	Defects model.DefectReport
}

type group struct {
	key    model.Row
	values [][]any
	rows   int
}

// Aggregate groups rows by spec.GroupBy and reduces each measure. The
// output has exactly one row per distinct key.
func Aggregate(rows []model.Row, spec Spec) Result {
	var result Result
	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, row := range rows {
		if field, missing := firstMissing(row, spec.GroupBy); missing {
			result.Defects.Add(model.Defect{
				Stream:  spec.Stream,
				Kind:    model.DefectMissingKey,
				Row:     row.Line(),
				Field:   field,
				Message: "row has no " + field + " and was excluded from aggregation",
			})
			continue
		}

		k := row.Key(spec.GroupBy)
		g, ok := groups[k]
		if !ok {
			g = &group{key: make(model.Row, len(spec.GroupBy)), values: make([][]any, len(spec.Measures))}
			for _, f := range spec.GroupBy {
				g.key[f] = row[f]
			}
			groups[k] = g
			order = append(order, k)
		}
		g.rows++
		for i, m := range spec.Measures {
			if m.Field == "" {
				continue
			}
			g.values[i] = append(g.values[i], row[m.Field])
		}
	}

	result.Rows = make([]model.Row, 0, len(order))
	for _, k := range order {
		g := groups[k]
		out := g.key.Clone()
		for i, m := range spec.Measures {
			out[m.output()] = reduce(m, g.values[i], g.rows)
		}
		result.Rows = append(result.Rows, out)
	}

	SortRows(result.Rows, spec.GroupBy)
	return result
}

// SortRows orders rows by fields, comparing values field by field.
func SortRows(rows []model.Row, fields []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, f := range fields {
			if c := model.CompareValues(rows[i][f], rows[j][f]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func firstMissing(row model.Row, fields []string) (string, bool) {
	for _, f := range fields {
		if row.Missing(f) {
			return f, true
		}
	}
	return "", false
}

func reduce(m Measure, values []any, rows int) any {
	switch m.Reducer {
	case Sum:
		total := 0.0
		for _, v := range values {
			total += model.ToFloat(v)
		}
		return total
	case Count:
		if m.Field == "" {
			return int64(rows)
		}
		var n int64
		for _, v := range values {
			if !model.IsMissing(v) {
				n++
			}
		}
		return n
	case Min, Max:
		var best any
		for _, v := range values {
			if model.IsMissing(v) {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			c := model.CompareValues(v, best)
			if (m.Reducer == Min && c < 0) || (m.Reducer == Max && c > 0) {
				best = v
			}
		}
		return best
	case Distinct:
		seen := make(map[string]struct{})
		var parts []string
		for _, v := range values {
			if model.IsMissing(v) {
				continue
			}
			s := model.FormatCell(v)
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			parts = append(parts, s)
		}
		sort.Strings(parts)
		return strings.Join(parts, ", ")
	case First:
		for _, v := range values {
			if !model.IsMissing(v) {
				return v
			}
		}
		return nil
	default:
		return nil
	}
}

// Package reconcile joins normalized streams on shared keys.
package reconcile

import (
	"fmt"
	"time"

	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/model"
)

// DuplicateKeyError reports a key that appears more than once where a join
// requires it to be unique.
type DuplicateKeyError struct {
	Stage string
	Key   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: duplicate key %s", e.Stage, model.DisplayKey(e.Key))
}

// Unwrap lets errors.Is match common.ErrDuplicateKey.
func (e *DuplicateKeyError) Unwrap() error {
	return common.ErrDuplicateKey
}

// Index is a unique-key lookup over a set of rows.
type Index struct {
	rows   map[string]model.Row
	fields []string
	order  []string
}

// NewIndex indexes rows by fields. A repeated key is a DuplicateKeyError.
func NewIndex(stage string, rows []model.Row, fields []string) (*Index, error) {
	idx := &Index{
		rows:   make(map[string]model.Row, len(rows)),
		fields: fields,
		order:  make([]string, 0, len(rows)),
	}
	for _, r := range rows {
		k := r.Key(fields)
		if _, dup := idx.rows[k]; dup {
			return nil, &DuplicateKeyError{Stage: stage, Key: k}
		}
		idx.rows[k] = r
		idx.order = append(idx.order, k)
	}
	return idx, nil
}

// Lookup returns the row stored under the key of probe.
func (i *Index) Lookup(probe model.Row) (model.Row, bool) {
	r, ok := i.rows[probe.Key(i.fields)]
	return r, ok
}

// Len returns the number of indexed rows.
func (i *Index) Len() int {
	return len(i.rows)
}

// JoinSpec describes one left join.
type JoinSpec struct {
	// Fill supplies values for right-side fields when no match exists.
	// Fields not listed stay nil.
	Fill map[string]any
	// Stage names the join in errors.
	Stage string
	// On lists the key fields shared by both sides.
	On []string
	// Take lists the right-side fields copied into the output.
	Take []string
	// UniqueLeft requires the left side to be unique on On as well.
	UniqueLeft bool
}

// JoinResult is the output of a left join.
type JoinResult struct {
	Rows []model.Row
	// UnmatchedRight holds right rows no left row referenced, in input order.
	UnmatchedRight []model.Row
	Matched        int
}

// LeftJoin keeps every left row in order and copies spec.Take from the
// matching right row. The right side must be unique on spec.On.
func LeftJoin(left, right []model.Row, spec JoinSpec) (JoinResult, error) {
	var result JoinResult

	idx, err := NewIndex(spec.Stage, right, spec.On)
	if err != nil {
		return result, err
	}
	if spec.UniqueLeft {
		if _, err := NewIndex(spec.Stage, left, spec.On); err != nil {
			return result, err
		}
	}

	used := make(map[string]struct{}, idx.Len())
	result.Rows = make([]model.Row, 0, len(left))
	for _, l := range left {
		out := l.Clone()
		if r, ok := idx.Lookup(l); ok {
			used[l.Key(spec.On)] = struct{}{}
			result.Matched++
			for _, f := range spec.Take {
				out[f] = r[f]
			}
		} else {
			for _, f := range spec.Take {
				out[f] = spec.Fill[f]
			}
		}
		result.Rows = append(result.Rows, out)
	}

	for _, k := range idx.order {
		if _, ok := used[k]; !ok {
			result.UnmatchedRight = append(result.UnmatchedRight, idx.rows[k])
		}
	}

	return result, nil
}

// FilterSince keeps rows whose date field is on or after cutoff. Rows with
// no date are kept only when cutoff is zero.
func FilterSince(rows []model.Row, field string, cutoff time.Time) []model.Row {
	if cutoff.IsZero() {
		return rows
	}
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		d, ok := r.Date(field)
		if !ok || d.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}

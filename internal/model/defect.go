package model

import (
	"fmt"
	"sort"
)

// DefectKind classifies a non-fatal data problem found during a run.
type DefectKind string

const (
	// DefectFieldCoercion means a value could not be parsed and was defaulted.
	DefectFieldCoercion DefectKind = "field_coercion"
	// DefectDroppedRow means a required field failed and the row was dropped.
	DefectDroppedRow DefectKind = "dropped_row"
	// DefectMissingKey means a row lacked a grouping value and was excluded.
	DefectMissingKey DefectKind = "missing_key"
	// DefectUnmappedCategory means a label was absent from the taxonomy.
	DefectUnmappedCategory DefectKind = "unmapped_category"
	// DefectOrphan means a row found no anchor to join to.
	DefectOrphan DefectKind = "orphan"
)

// Defect is one recorded data problem.
type Defect struct {
	Stream  StreamKind `json:"stream"`
	Kind    DefectKind `json:"kind"`
	Row     int        `json:"row,omitempty"`
	Field   string     `json:"field,omitempty"`
	Value   string     `json:"value,omitempty"`
	Message string     `json:"message"`
}

func (d Defect) String() string {
	loc := string(d.Stream)
	if d.Row > 0 {
		loc = fmt.Sprintf("%s row %d", loc, d.Row)
	}
	if d.Field != "" {
		return fmt.Sprintf("%s [%s] %s=%q: %s", loc, d.Kind, d.Field, d.Value, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", loc, d.Kind, d.Message)
}

// DefectReport collects the defects of a run.
type DefectReport struct {
	Entries []Defect
}

// Add records a defect.
func (r *DefectReport) Add(d Defect) {
	r.Entries = append(r.Entries, d)
}

// Merge appends every entry of other.
func (r *DefectReport) Merge(other DefectReport) {
	r.Entries = append(r.Entries, other.Entries...)
}

// Len returns the number of defects.
func (r *DefectReport) Len() int {
	return len(r.Entries)
}

// Counts returns the number of defects per kind.
func (r *DefectReport) Counts() map[DefectKind]int {
	counts := make(map[DefectKind]int)
	for _, d := range r.Entries {
		counts[d.Kind]++
	}
	return counts
}

// Filter returns the defects of the given kind.
func (r *DefectReport) Filter(kind DefectKind) []Defect {
	var out []Defect
	for _, d := range r.Entries {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Kinds returns the defect kinds present, sorted.
func (r *DefectReport) Kinds() []DefectKind {
	counts := r.Counts()
	kinds := make([]DefectKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

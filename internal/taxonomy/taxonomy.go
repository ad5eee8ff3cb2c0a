// Package taxonomy maps free-text product labels onto the reference
// vocabulary of presentations and groups.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Contingency is the reserved presentation and group that collects every
// label missing from the taxonomy.
const Contingency = "IMPREVISTOS"

var (
	// ErrInvalidTaxonomy is returned when a taxonomy definition is inconsistent.
	ErrInvalidTaxonomy = errors.New("invalid taxonomy")
)

// Entry is one known presentation and the group it rolls up into.
type Entry struct {
	Presentation string  `yaml:"presentation"`
	Group        string  `yaml:"group"`
	UnitsPerBox  float64 `yaml:"units_per_box"`
	UnitKg       float64 `yaml:"unit_kg"`
}

// File is the on-disk reference table.
type File struct {
	// Products maps finished-product descriptions onto presentations.
	Products map[string]string `yaml:"products"`
	// Synonyms rewrites legacy labels before lookup.
	Synonyms      map[string]string `yaml:"synonyms"`
	Presentations []Entry           `yaml:"presentations"`
}

// Resolution is the outcome of resolving one label.
type Resolution struct {
	Label        string
	Presentation string
	Group        string
	Mapped       bool
}

// Taxonomy is an immutable, validated reference vocabulary.
type Taxonomy struct {
	entries       map[string]Entry
	products      map[string]string
	synonyms      map[string]string
	presentations []string
	groups        []string
}

// New validates f and builds a Taxonomy. The contingency entry is always
// part of the vocabulary.
func New(f File) (*Taxonomy, error) {
	t := &Taxonomy{
		entries:  make(map[string]Entry, len(f.Presentations)+1),
		products: make(map[string]string, len(f.Products)),
		synonyms: make(map[string]string, len(f.Synonyms)),
	}

	seenGroups := make(map[string]struct{})
	for i, e := range f.Presentations {
		e.Presentation = strings.TrimSpace(e.Presentation)
		e.Group = strings.TrimSpace(e.Group)
		if e.Presentation == "" {
			return nil, fmt.Errorf("%w: presentation %d has no name", ErrInvalidTaxonomy, i+1)
		}
		if e.Group == "" {
			return nil, fmt.Errorf("%w: presentation %q has no group", ErrInvalidTaxonomy, e.Presentation)
		}
		if e.UnitsPerBox < 0 || e.UnitKg < 0 {
			return nil, fmt.Errorf("%w: presentation %q has a negative unit weight", ErrInvalidTaxonomy, e.Presentation)
		}
		key := normalizeLabel(e.Presentation)
		if key == Contingency {
			return nil, fmt.Errorf("%w: %s is reserved", ErrInvalidTaxonomy, Contingency)
		}
		if _, dup := t.entries[key]; dup {
			return nil, fmt.Errorf("%w: presentation %q listed twice", ErrInvalidTaxonomy, e.Presentation)
		}
		t.entries[key] = e
		t.presentations = append(t.presentations, e.Presentation)
		if _, ok := seenGroups[e.Group]; !ok {
			seenGroups[e.Group] = struct{}{}
			t.groups = append(t.groups, e.Group)
		}
	}

	for from, to := range f.Synonyms {
		t.synonyms[normalizeLabel(from)] = normalizeLabel(to)
	}
	for product, presentation := range f.Products {
		key := normalizeLabel(presentation)
		if _, ok := t.entries[key]; !ok {
			return nil, fmt.Errorf("%w: product %q maps to unknown presentation %q", ErrInvalidTaxonomy, product, presentation)
		}
		t.products[normalizeLabel(product)] = key
	}

	t.entries[Contingency] = Entry{Presentation: Contingency, Group: Contingency}
	t.presentations = append(t.presentations, Contingency)
	if _, ok := seenGroups[Contingency]; !ok {
		t.groups = append(t.groups, Contingency)
	}

	return t, nil
}

// Parse decodes a YAML taxonomy.
func Parse(data []byte) (*Taxonomy, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	return New(f)
}

// LoadFile reads and parses a YAML taxonomy file.
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Resolve maps label onto its presentation and group. Synonyms apply first,
// then product descriptions, then presentation names. Unknown labels
// resolve to the contingency entry with Mapped false.
func (t *Taxonomy) Resolve(label string) Resolution {
	key := normalizeLabel(label)
	if syn, ok := t.synonyms[key]; ok {
		key = syn
	}
	if pres, ok := t.products[key]; ok {
		key = pres
	}
	if e, ok := t.entries[key]; ok && key != Contingency {
		return Resolution{Label: label, Presentation: e.Presentation, Group: e.Group, Mapped: true}
	}
	return Resolution{Label: label, Presentation: Contingency, Group: Contingency}
}

// UnitWeight returns the kilograms per box of a presentation
// (units_per_box × unit_kg). Unknown presentations weigh zero.
func (t *Taxonomy) UnitWeight(presentation string) float64 {
	e, ok := t.entries[normalizeLabel(presentation)]
	if !ok {
		return 0
	}
	return e.UnitsPerBox * e.UnitKg
}

// Presentations returns every known presentation, contingency last.
func (t *Taxonomy) Presentations() []string {
	return append([]string(nil), t.presentations...)
}

// Groups returns every known group in first-seen order, contingency last.
func (t *Taxonomy) Groups() []string {
	return append([]string(nil), t.groups...)
}

// Entries returns a copy of every entry except the contingency one.
func (t *Taxonomy) Entries() []Entry {
	out := make([]Entry, 0, len(t.presentations))
	for _, p := range t.presentations {
		if p == Contingency {
			continue
		}
		out = append(out, t.entries[normalizeLabel(p)])
	}
	return out
}

func normalizeLabel(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

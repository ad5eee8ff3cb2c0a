package model

import "strings"

// UnspecifiedLabel is the sentinel written for blank categorical values.
const UnspecifiedLabel = "NOT_SPECIFIED"

// Category is a trimmed categorical field value (farm, variety, shift...).
// The zero value is CategoryUnspecified.
type Category struct {
	value string
}

// CategoryUnspecified represents a blank or missing categorical value.
var CategoryUnspecified = Category{}

// NewCategory trims s and returns the matching Category.
// Blank input yields CategoryUnspecified.
func NewCategory(s string) Category {
	return Category{value: strings.TrimSpace(s)}
}

// IsUnspecified reports whether the value was blank at the source.
func (c Category) IsUnspecified() bool {
	return c.value == ""
}

// Raw returns the trimmed source value, empty when unspecified.
func (c Category) Raw() string {
	return c.value
}

// String renders the category for output, substituting UnspecifiedLabel.
func (c Category) String() string {
	if c.IsUnspecified() {
		return UnspecifiedLabel
	}
	return c.value
}

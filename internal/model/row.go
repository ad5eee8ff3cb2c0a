package model

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical rendering for calendar dates.
const DateLayout = "2006-01-02"

// Row is one normalized event keyed by canonical field name.
// Values are float64, int64, time.Time, Category, string (text or
// "HH:MM:SS" clock times) or nil when the source value was unusable.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Float returns the numeric value of field, or 0 when absent.
func (r Row) Float(field string) float64 {
	return ToFloat(r[field])
}

// ToFloat converts a numeric cell value to float64; other values are 0.
func ToFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Date returns the date value of field.
func (r Row) Date(field string) (time.Time, bool) {
	t, ok := r[field].(time.Time)
	return t, ok
}

// Category returns the categorical value of field.
// Plain strings are converted; anything else is unspecified.
func (r Row) Category(field string) Category {
	switch v := r[field].(type) {
	case Category:
		return v
	case string:
		return NewCategory(v)
	default:
		return CategoryUnspecified
	}
}

// Text returns the string value of field, or "" when absent.
func (r Row) Text(field string) string {
	switch v := r[field].(type) {
	case string:
		return v
	case Category:
		return v.Raw()
	default:
		return ""
	}
}

// Missing reports whether field has no usable value. An unspecified Category
// is a value and therefore not missing.
func (r Row) Missing(field string) bool {
	return IsMissing(r[field])
}

// IsMissing reports whether a cell value is nil or a blank string.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Line returns the source line of the row, or 0 when unknown.
func (r Row) Line() int {
	if n, ok := r[FieldSourceLine].(int); ok {
		return n
	}
	return 0
}

// Key builds the composite identity of the row over fields.
func (r Row) Key(fields []string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = KeyPart(r[f])
	}
	return strings.Join(parts, "\x1f")
}

// unspecifiedKeyPart stands for CategoryUnspecified inside keys, so a source
// cell reading "NOT_SPECIFIED" keeps a key of its own.
const unspecifiedKeyPart = "\x00"

// KeyPart renders a single value for use inside a composite key.
func KeyPart(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(DateLayout)
	case Category:
		if val.IsUnspecified() {
			return unspecifiedKeyPart
		}
		return val.Raw()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case string:
		return val
	default:
		return ""
	}
}

// DisplayKey renders a composite key for logs and error messages.
func DisplayKey(key string) string {
	key = strings.ReplaceAll(key, unspecifiedKeyPart, UnspecifiedLabel)
	return "(" + strings.ReplaceAll(key, "\x1f", ", ") + ")"
}

// CompareValues orders two cell values of the same kind. Nil sorts first.
// Values of different kinds compare by their key rendering.
func CompareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			return cmpOrdered(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmpOrdered(x, y)
		}
	case int:
		if y, ok := b.(int); ok {
			return cmpOrdered(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case Category:
		if y, ok := b.(Category); ok {
			return strings.Compare(x.Raw(), y.Raw())
		}
	}
	return strings.Compare(KeyPart(a), KeyPart(b))
}

func cmpOrdered[T int | int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

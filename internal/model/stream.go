// Package model contains the core data types shared across the application.
package model

import (
	"fmt"
	"strings"
)

// StreamKind identifies the collaborator feed a table was extracted from.
type StreamKind string

const (
	// StreamReception is the raw-material reception log (one line per scale reading).
	StreamReception StreamKind = "reception"
	// StreamCooling is the cooling-chamber log.
	StreamCooling StreamKind = "cooling"
	// StreamDumping is the line-feed (dumping) log.
	StreamDumping StreamKind = "dumping"
	// StreamDiscard is the discard log of the packing line.
	StreamDiscard StreamKind = "discard"
	// StreamFinishedProduct is the finished-product box register.
	StreamFinishedProduct StreamKind = "finished_product"
	// StreamProductionReport is the daily production report.
	StreamProductionReport StreamKind = "production_report"
)

// AllStreamKinds returns every known stream kind in pipeline order.
func AllStreamKinds() []StreamKind {
	return []StreamKind{
		StreamReception,
		StreamCooling,
		StreamDumping,
		StreamDiscard,
		StreamFinishedProduct,
		StreamProductionReport,
	}
}

// IsValid reports whether k is one of the known stream kinds.
func (k StreamKind) IsValid() bool {
	for _, known := range AllStreamKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// ParseStreamKind converts user input (e.g. "finished-product") into a StreamKind.
func ParseStreamKind(s string) (StreamKind, error) {
	k := StreamKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStream, s)
	}
	return k, nil
}

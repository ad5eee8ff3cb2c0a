// Package yield computes the mass balance of a processed batch.
package yield

import (
	"fmt"

	"github.com/Veraticus/packflow/internal/model"
)

// DefaultShrinkageThreshold is the overweight fraction tolerated before it
// counts as shrinkage.
const DefaultShrinkageThreshold = 0.04

// Calculator derives mass-balance metrics.
type Calculator struct {
	ShrinkageThreshold float64
}

// Default returns a Calculator using DefaultShrinkageThreshold.
func Default() Calculator {
	return Calculator{ShrinkageThreshold: DefaultShrinkageThreshold}
}

// NewCalculator returns a Calculator with the given threshold.
func NewCalculator(threshold float64) (Calculator, error) {
	if threshold < 0 || threshold >= 1 {
		return Calculator{}, fmt.Errorf("shrinkage threshold %v outside [0, 1)", threshold)
	}
	return Calculator{ShrinkageThreshold: threshold}, nil
}

// Compute derives the mass balance from processed, discard and exportable
// kilograms. Ratios are undefined when processed is zero. Overweight is not
// clamped; only shrinkage is floored at zero.
func (c Calculator) Compute(processed, discard, exportable float64) model.MassBalance {
	mb := model.MassBalance{
		KgProcessed:  processed,
		KgDiscard:    discard,
		KgExportable: exportable,
		KgOverweight: processed - exportable - discard,
	}

	mb.PctDiscard = model.NewRatio(discard, processed)
	mb.PctOverweight = model.NewRatio(mb.KgOverweight, processed)
	mb.PctYield = model.NewRatio(exportable, processed)
	mb.PctExportable = mb.PctYield

	if mb.PctOverweight.Defined {
		mb.PctShrinkage = model.Ratio{Value: Shrinkage(mb.PctOverweight.Value, c.ShrinkageThreshold), Defined: true}
		mb.KgShrinkage = mb.PctShrinkage.Value * processed
	}
	mb.KgOverweightNet = mb.KgOverweight - mb.KgShrinkage

	return mb
}

// Shrinkage returns max(0, overweight - threshold).
func Shrinkage(overweight, threshold float64) float64 {
	if overweight > threshold {
		return overweight - threshold
	}
	return 0
}

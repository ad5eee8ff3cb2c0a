package yield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShrinkage(t *testing.T) {
	tests := []struct {
		name       string
		overweight float64
		want       float64
	}{
		{name: "above threshold", overweight: 0.10, want: 0.06},
		{name: "below threshold", overweight: 0.02, want: 0},
		{name: "at threshold", overweight: 0.04, want: 0},
		{name: "negative overweight", overweight: -0.05, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Shrinkage(tt.overweight, DefaultShrinkageThreshold), 1e-12)
		})
	}
}

func TestCompute(t *testing.T) {
	mb := Default().Compute(1000, 50, 850)

	assert.InDelta(t, 100.0, mb.KgOverweight, 1e-9)
	assert.InDelta(t, 0.05, mb.PctDiscard.Value, 1e-12)
	assert.InDelta(t, 0.10, mb.PctOverweight.Value, 1e-12)
	assert.InDelta(t, 0.06, mb.PctShrinkage.Value, 1e-12)
	assert.InDelta(t, 60.0, mb.KgShrinkage, 1e-9)
	assert.InDelta(t, 40.0, mb.KgOverweightNet, 1e-9)
	assert.InDelta(t, 0.85, mb.PctYield.Value, 1e-12)
	assert.Equal(t, mb.PctYield, mb.PctExportable)
	assert.True(t, mb.PctShrinkage.Defined)
}

func TestCompute_MassIdentity(t *testing.T) {
	calc := Calculator{ShrinkageThreshold: 0.04}
	inputs := [][3]float64{
		{1000, 50, 850},
		{500, 0, 490},
		{200, 30, 190},
		{0.5, 0.1, 0.2},
	}

	for _, in := range inputs {
		mb := calc.Compute(in[0], in[1], in[2])
		assert.InDelta(t, mb.KgProcessed, mb.KgExportable+mb.KgDiscard+mb.KgOverweight, 1e-9)
		assert.GreaterOrEqual(t, mb.PctShrinkage.Value, 0.0)
	}
}

func TestCompute_NegativeOverweightNotClamped(t *testing.T) {
	mb := Default().Compute(200, 30, 190)
	assert.InDelta(t, -20.0, mb.KgOverweight, 1e-9)
	assert.InDelta(t, 0.0, mb.PctShrinkage.Value, 1e-12)
	assert.Equal(t, 0.0, mb.KgShrinkage)
}

func TestCompute_ZeroProcessed(t *testing.T) {
	mb := Default().Compute(0, 0, 0)

	assert.False(t, mb.PctDiscard.Defined)
	assert.False(t, mb.PctOverweight.Defined)
	assert.False(t, mb.PctShrinkage.Defined)
	assert.False(t, mb.PctYield.Defined)
	assert.Equal(t, 0.0, mb.KgShrinkage)
	assert.Equal(t, 0.0, mb.KgOverweight)
}

func TestNewCalculator(t *testing.T) {
	calc, err := NewCalculator(0.05)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, calc.Compute(100, 0, 80).PctShrinkage.Value, 1e-12)

	_, err = NewCalculator(-0.1)
	assert.Error(t, err)
	_, err = NewCalculator(1)
	assert.Error(t, err)
}

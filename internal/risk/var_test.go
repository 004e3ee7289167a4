package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateVaR(t *testing.T) {
	returns := []float64{0.02, -0.05, 0.01, 0.04, -0.01, 0.00, -0.02, 0.03}

	// 8 samples, 75% → idx 2 → -0.01; tail = -0.05, -0.02, -0.01
	r := CalculateVaR(returns, 0.75)
	assert.InDelta(t, 0.01, r.VaR, 1e-12)
	assert.InDelta(t, 0.08/3, r.CVaR, 1e-12)

	assert.Equal(t, VaRResult{Confidence: 0.95}, CalculateVaR(nil, 0.95))
}

func TestCalculateVaR_NoLosses(t *testing.T) {
	r := CalculateVaR([]float64{0.01, 0.02}, 0.95)
	assert.Zero(t, r.VaR)
	assert.Zero(t, r.CVaR)
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, math.Sqrt(2.5), StdDev([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.Zero(t, StdDev([]float64{1}))
}

func TestDownsideDeviation(t *testing.T) {
	// squares of negatives: 0.01 + 0.04 = 0.05; / (4-1)
	assert.InDelta(t, math.Sqrt(0.05/3), DownsideDeviation([]float64{-0.1, 0.2, -0.2, 0.3}), 1e-12)
	assert.Zero(t, DownsideDeviation([]float64{0.1, 0.2}))
}

package portfolio

import "math"

// Sizer turns a selection into target weights
// ⭐ SSOT: 목표 비중 계산은 여기서만
// 계약: 비중 합 <= position_size, 잔여는 현금 (재정규화 없음)
type Sizer struct {
	positionSize    float64
	maxPositionSize float64
}

// NewSizer creates a sizer; both inputs are validated upstream to (0, 1]
func NewSizer(positionSize, maxPositionSize float64) *Sizer {
	return &Sizer{
		positionSize:    positionSize,
		maxPositionSize: maxPositionSize,
	}
}

// Size assigns min(position_size/|selected|, max_position_size) to each symbol
func (s *Sizer) Size(selected []string) map[string]float64 {
	return Size(selected, s.positionSize, s.maxPositionSize)
}

// Size is the stateless form of Sizer.Size
func Size(selected []string, positionSize, maxPositionSize float64) map[string]float64 {
	targets := make(map[string]float64, len(selected))
	if len(selected) == 0 {
		return targets
	}

	weight := math.Min(positionSize/float64(len(selected)), maxPositionSize)
	for _, sym := range selected {
		targets[sym] = weight
	}
	return targets
}

// TotalWeight returns the sum of all target weights
func TotalWeight(targets map[string]float64) float64 {
	total := 0.0
	for _, w := range targets {
		total += w
	}
	return total
}

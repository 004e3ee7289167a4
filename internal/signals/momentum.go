package signals

import (
	"time"

	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// Momentum returns close[t]/close[t-lookback] - 1.
// ok is false when t < lookback or either price is unusable.
func Momentum(series *contracts.AssetSeries, t, lookback int) (float64, bool) {
	if series == nil || lookback <= 0 || t < lookback || t >= len(series.Bars) {
		return 0, false
	}

	current := series.Bars[t].Close
	past := series.Bars[t-lookback].Close
	if !contracts.ValidPrice(current) || !contracts.ValidPrice(past) {
		return 0, false
	}

	return current/past - 1, true
}

// Scorer calculates momentum scores over a universe
// ⭐ SSOT: 모멘텀 시그널 계산은 여기서만
type Scorer struct {
	lookback  int
	threshold float64
	logger    *logger.Logger
}

// NewScorer creates a new momentum scorer
func NewScorer(lookback int, threshold float64, log *logger.Logger) *Scorer {
	return &Scorer{
		lookback:  lookback,
		threshold: threshold,
		logger:    log,
	}
}

// Score returns a score for every asset with a bar on date, in symbol order.
// Scores below the threshold are kept with Eligible=false so the audit trail shows them.
func (s *Scorer) Score(universe contracts.Universe, date time.Time) []contracts.MomentumScore {
	scores := make([]contracts.MomentumScore, 0, len(universe))

	for _, sym := range universe.Symbols() {
		series := universe[sym]
		t, ok := series.IndexOf(date)
		if !ok {
			continue
		}

		value, ok := Momentum(series, t, s.lookback)
		if !ok {
			continue
		}

		scores = append(scores, contracts.MomentumScore{
			Symbol:   sym,
			Date:     date,
			Value:    value,
			Eligible: value >= s.threshold,
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"scored": len(scores),
	}).Debug("Calculated momentum scores")

	return scores
}

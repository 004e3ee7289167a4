package strategy

import (
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/portfolio"
	"github.com/wonny/aegis-rotation/internal/selection"
	"github.com/wonny/aegis-rotation/internal/signals"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// MomentumRotation holds the top-N assets by trailing return
type MomentumRotation struct {
	scorer *signals.Scorer
	sizer  *portfolio.Sizer
	topN   int
}

// NewMomentumRotation builds scorer → selector → sizer from config
func NewMomentumRotation(cfg *strategyconfig.Config, log *logger.Logger) *MomentumRotation {
	return &MomentumRotation{
		scorer: signals.NewScorer(cfg.Strategy.LookbackPeriod, cfg.Strategy.MinMomentumThreshold, log),
		sizer:  portfolio.NewSizer(cfg.Portfolio.PositionSize, cfg.Portfolio.MaxPositionSize),
		topN:   cfg.Strategy.TopNHoldings,
	}
}

// Name implements contracts.Strategy
func (m *MomentumRotation) Name() string {
	return strategyconfig.KindMomentumRotation
}

// Evaluate implements contracts.Strategy
func (m *MomentumRotation) Evaluate(_ contracts.PortfolioState, in contracts.EvaluationInput) (*contracts.Decision, error) {
	scores := m.scorer.Score(in.Universe, in.Date)
	selected := selection.Select(scores, m.topN)

	return &contracts.Decision{
		Scores:   scores,
		Selected: selected,
		Targets:  m.sizer.Size(selected),
	}, nil
}

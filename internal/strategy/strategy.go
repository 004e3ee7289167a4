package strategy

import (
	"fmt"

	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// New returns the variant named by strategy.kind
// ⭐ SSOT: 전략 종류는 설정 시점에 한 번만 결정
func New(cfg *strategyconfig.Config, log *logger.Logger) (contracts.Strategy, error) {
	switch cfg.Strategy.Kind {
	case strategyconfig.KindMomentumRotation:
		return NewMomentumRotation(cfg, log), nil
	case strategyconfig.KindMACross:
		return NewMovingAverageCross(cfg, log), nil
	default:
		return nil, strategyconfig.ValidationError{
			Field:   "strategy.kind",
			Message: fmt.Sprintf("unknown kind %q", cfg.Strategy.Kind),
		}
	}
}

package strategyconfig

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is matched by every ValidationError
var ErrInvalidConfig = errors.New("invalid strategy config")

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidConfig) match any validation failure
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (백테스트 시작 전 중단)
func Validate(cfg *Config) error {
	if cfg == nil {
		return ValidationError{"config", "required"}
	}

	// === Strategy ===
	s := cfg.Strategy
	switch s.Kind {
	case KindMomentumRotation, KindMACross:
	default:
		return ValidationError{"strategy.kind", fmt.Sprintf("unknown kind %q", s.Kind)}
	}
	if s.LookbackPeriod <= 0 {
		return ValidationError{"strategy.lookback_period", "must be > 0"}
	}
	if s.TopNHoldings <= 0 {
		return ValidationError{"strategy.top_n_holdings", "must be > 0"}
	}
	if !isFinite(s.MinMomentumThreshold) {
		return ValidationError{"strategy.min_momentum_threshold", "must be finite"}
	}
	if s.Kind == KindMACross {
		if err := validateMACross(s.MACross); err != nil {
			return err
		}
	}

	// === Portfolio ===
	p := cfg.Portfolio
	if err := validateUnitInterval(p.PositionSize, "portfolio.position_size"); err != nil {
		return err
	}
	if err := validateUnitInterval(p.MaxPositionSize, "portfolio.max_position_size"); err != nil {
		return err
	}
	if !(p.MinCashBuffer >= 0 && p.MinCashBuffer < 1) {
		return ValidationError{"portfolio.min_cash_buffer", "must be in [0, 1)"}
	}
	if !(p.InitialCapital > 0) || math.IsInf(p.InitialCapital, 0) {
		return ValidationError{"portfolio.initial_capital", "must be > 0"}
	}

	// === Rebalance ===
	switch cfg.Rebalance.Freq {
	case FreqDaily, FreqWeekly, FreqMonthly:
	default:
		return ValidationError{"rebalance.freq", "must be daily, weekly or monthly"}
	}

	// === Risk ===
	if !(cfg.Risk.StopLossPct < 0) {
		return ValidationError{"risk.stop_loss_pct", "must be < 0"}
	}
	if !(cfg.Risk.TrailingStopPct > 0) {
		return ValidationError{"risk.trailing_stop_pct", "must be > 0"}
	}

	// === Costs ===
	if !(cfg.Costs.TransactionCost >= 0) || math.IsInf(cfg.Costs.TransactionCost, 0) {
		return ValidationError{"costs.transaction_cost", "must be >= 0"}
	}

	// === Universe ===
	seen := make(map[string]bool, len(cfg.Universe.Symbols))
	for i, sym := range cfg.Universe.Symbols {
		if sym == "" {
			return ValidationError{fmt.Sprintf("universe.symbols[%d]", i), "must not be empty"}
		}
		if seen[sym] {
			return ValidationError{fmt.Sprintf("universe.symbols[%d]", i), fmt.Sprintf("duplicate symbol %s", sym)}
		}
		seen[sym] = true
	}
	start, err := cfg.StartDate()
	if err != nil {
		return ValidationError{"universe.start_date", "must be YYYY-MM-DD"}
	}
	end, err := cfg.EndDate()
	if err != nil {
		return ValidationError{"universe.end_date", "must be YYYY-MM-DD"}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return ValidationError{"universe", "start_date must be <= end_date"}
	}

	// === Calendar ===
	for i, h := range cfg.Calendar.Holidays {
		if _, err := parseOptionalDate(h); err != nil || h == "" {
			return ValidationError{fmt.Sprintf("calendar.holidays[%d]", i), "must be YYYY-MM-DD"}
		}
	}

	return nil
}

func validateMACross(m MACross) error {
	if m.ShortWindow <= 0 {
		return ValidationError{"strategy.ma_cross.short_window", "must be > 0"}
	}
	if m.LongWindow <= m.ShortWindow {
		return ValidationError{"strategy.ma_cross.long_window", "must be > short_window"}
	}
	if m.RSIPeriod <= 0 {
		return ValidationError{"strategy.ma_cross.rsi_period", "must be > 0"}
	}
	if !(m.RSIBuy > 0 && m.RSIBuy < 100) {
		return ValidationError{"strategy.ma_cross.rsi_buy", "must be in (0, 100)"}
	}
	if !(m.RSISell > 0 && m.RSISell < 100) {
		return ValidationError{"strategy.ma_cross.rsi_sell", "must be in (0, 100)"}
	}
	if m.RSISell >= m.RSIBuy {
		return ValidationError{"strategy.ma_cross", "rsi_sell must be < rsi_buy"}
	}
	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Costs.TransactionCost > 0.005 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_COST",
			Message: fmt.Sprintf("transaction_cost %.4f > 0.5%%: 잦은 리밸런싱 시 비용 부담", cfg.Costs.TransactionCost),
		})
	}

	capacity := float64(cfg.Strategy.TopNHoldings) * cfg.Portfolio.MaxPositionSize
	if capacity < cfg.Portfolio.PositionSize {
		warnings = append(warnings, Warning{
			Code:    "UNDER_INVESTED",
			Message: fmt.Sprintf("top_n × max_position_size = %.2f < position_size %.2f: 잔여 비중은 현금", capacity, cfg.Portfolio.PositionSize),
		})
	}

	if cfg.Portfolio.MinCashBuffer > 1-cfg.Portfolio.PositionSize+0.05 {
		warnings = append(warnings, Warning{
			Code:    "LARGE_BUFFER",
			Message: "min_cash_buffer 가 비투자 비중보다 커서 매수가 자주 축소될 수 있음",
		})
	}

	if cfg.Strategy.Kind == KindMomentumRotation && cfg.Strategy.LookbackPeriod < 5 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_LOOKBACK",
			Message: "lookback_period < 5: 노이즈에 민감",
		})
	}

	if len(cfg.Universe.Symbols) > 0 && len(cfg.Universe.Symbols) < cfg.Strategy.TopNHoldings {
		warnings = append(warnings, Warning{
			Code:    "SMALL_UNIVERSE",
			Message: "universe 종목 수가 top_n_holdings 보다 적음",
		})
	}

	return warnings
}

// === Helper Functions ===

// validateUnitInterval는 값이 (0, 1] 범위인지 검증
func validateUnitInterval(v float64, field string) error {
	if !(v > 0 && v <= 1) {
		return ValidationError{field, "must be in (0, 1]"}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package strategyconfig

import "time"

// Strategy kinds
const (
	KindMomentumRotation = "momentum_rotation"
	KindMACross          = "ma_cross"
)

// Rebalance frequencies
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// DateLayout is used for every date field in the YAML
const DateLayout = "2006-01-02"

// Config is the full, immutable configuration of one backtest run
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Strategy  Strategy  `yaml:"strategy" json:"strategy"`
	Portfolio Portfolio `yaml:"portfolio" json:"portfolio"`
	Rebalance Rebalance `yaml:"rebalance" json:"rebalance"`
	Risk      Risk      `yaml:"risk" json:"risk"`
	Costs     Costs     `yaml:"costs" json:"costs"`
	Universe  Universe  `yaml:"universe" json:"universe"`
	Calendar  Calendar  `yaml:"calendar" json:"calendar"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Strategy selects the variant and its signal parameters
type Strategy struct {
	Kind                 string  `yaml:"kind" json:"kind"`
	LookbackPeriod       int     `yaml:"lookback_period" json:"lookback_period"`
	TopNHoldings         int     `yaml:"top_n_holdings" json:"top_n_holdings"`
	MinMomentumThreshold float64 `yaml:"min_momentum_threshold" json:"min_momentum_threshold"`
	MACross              MACross `yaml:"ma_cross" json:"ma_cross"`
}

// MACross parameters for the moving-average cross variant
type MACross struct {
	ShortWindow int     `yaml:"short_window" json:"short_window"`
	LongWindow  int     `yaml:"long_window" json:"long_window"`
	RSIPeriod   int     `yaml:"rsi_period" json:"rsi_period"`
	RSIBuy      float64 `yaml:"rsi_buy" json:"rsi_buy"`
	RSISell     float64 `yaml:"rsi_sell" json:"rsi_sell"`
}

// Portfolio sizing and capital
type Portfolio struct {
	PositionSize    float64 `yaml:"position_size" json:"position_size"`         // 총 투자 비중
	MaxPositionSize float64 `yaml:"max_position_size" json:"max_position_size"` // 종목당 최대 비중
	MinCashBuffer   float64 `yaml:"min_cash_buffer" json:"min_cash_buffer"`
	InitialCapital  float64 `yaml:"initial_capital" json:"initial_capital"`
}

// Rebalance cadence
type Rebalance struct {
	Freq string `yaml:"freq" json:"freq"`
}

// Risk exits evaluated on every bar
type Risk struct {
	StopLossPct     float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`         // 음수, 예: -0.10
	TrailingStopPct float64 `yaml:"trailing_stop_pct" json:"trailing_stop_pct"` // 양수, 예: 0.05
}

// Costs applied to every fill
type Costs struct {
	TransactionCost float64 `yaml:"transaction_cost" json:"transaction_cost"`
}

// Universe lists the symbols and date range to simulate
type Universe struct {
	Symbols   []string `yaml:"symbols" json:"symbols"`
	StartDate string   `yaml:"start_date" json:"start_date"`
	EndDate   string   `yaml:"end_date" json:"end_date"`
}

// Calendar holds market holidays excluded from trading days
type Calendar struct {
	Holidays []string `yaml:"holidays" json:"holidays"`
}

// Default returns the reference parameter set
func Default() *Config {
	return &Config{
		Meta: Meta{StrategyID: "momentum_rotation", Version: "1"},
		Strategy: Strategy{
			Kind:                 KindMomentumRotation,
			LookbackPeriod:       20,
			TopNHoldings:         3,
			MinMomentumThreshold: 0.0,
			MACross: MACross{
				ShortWindow: 5,
				LongWindow:  20,
				RSIPeriod:   14,
				RSIBuy:      60,
				RSISell:     40,
			},
		},
		Portfolio: Portfolio{
			PositionSize:    0.95,
			MaxPositionSize: 0.4,
			MinCashBuffer:   0.05,
			InitialCapital:  1_000_000,
		},
		Rebalance: Rebalance{Freq: FreqWeekly},
		Risk: Risk{
			StopLossPct:     -0.10,
			TrailingStopPct: 0.05,
		},
		Costs: Costs{TransactionCost: 0.001},
	}
}

// StartDate parses universe.start_date; empty means unbounded
func (c *Config) StartDate() (time.Time, error) {
	return parseOptionalDate(c.Universe.StartDate)
}

// EndDate parses universe.end_date; empty means unbounded
func (c *Config) EndDate() (time.Time, error) {
	return parseOptionalDate(c.Universe.EndDate)
}

// HolidayDates parses calendar.holidays
func (c *Config) HolidayDates() ([]time.Time, error) {
	dates := make([]time.Time, 0, len(c.Calendar.Holidays))
	for _, h := range c.Calendar.Holidays {
		d, err := time.Parse(DateLayout, h)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Clone returns a deep copy so overrides never touch a shared config
func (c *Config) Clone() *Config {
	out := *c
	out.Universe.Symbols = append([]string(nil), c.Universe.Symbols...)
	out.Calendar.Holidays = append([]string(nil), c.Calendar.Holidays...)
	return &out
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}

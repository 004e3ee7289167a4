package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/aegis-rotation/internal/calendar"
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/data"
	"github.com/wonny/aegis-rotation/internal/metrics"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// Trigger names for metrics
const (
	TriggerCLI       = "cli"
	TriggerAPI       = "api"
	TriggerScheduler = "scheduler"
)

// RunnerConfig holds data loading limits
type RunnerConfig struct {
	LoaderConcurrency int
	LoaderRatePerSec  float64
}

// Runner loads a universe from a store and runs one engine over it.
// CLI, API and scheduled jobs all go through here.
type Runner struct {
	store   contracts.PriceStore
	cfg     RunnerConfig
	metrics *metrics.Registry // optional
	logger  *logger.Logger
}

// NewRunner creates a runner; reg may be nil
func NewRunner(store contracts.PriceStore, cfg RunnerConfig, reg *metrics.Registry, log *logger.Logger) *Runner {
	return &Runner{
		store:   store,
		cfg:     cfg,
		metrics: reg,
		logger:  log,
	}
}

// Run validates cfg, loads its universe and simulates it.
// Configuration errors are returned before any data is fetched.
func (r *Runner) Run(ctx context.Context, cfg *strategyconfig.Config, trigger string) (*contracts.Report, error) {
	if cfg == nil {
		return nil, strategyconfig.Validate(cfg)
	}

	var timer *metrics.RunTimer
	if r.metrics != nil {
		timer = r.metrics.StartRun(trigger)
	}

	report, err := r.run(ctx, cfg)

	if timer != nil {
		timer.Finish(cfg.Strategy.Kind, report, err)
	}
	return report, err
}

func (r *Runner) run(ctx context.Context, cfg *strategyconfig.Config) (*contracts.Report, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}

	holidays, err := cfg.HolidayDates()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", strategyconfig.ErrInvalidConfig, err)
	}

	engine, err := NewEngine(cfg, calendar.NewWeekdayCalendar(holidays), r.logger)
	if err != nil {
		return nil, err
	}

	symbols, err := r.symbols(ctx, cfg)
	if err != nil {
		return nil, err
	}

	start, _ := cfg.StartDate()
	end, _ := cfg.EndDate()

	loader := data.NewLoader(r.store, r.cfg.LoaderConcurrency, r.cfg.LoaderRatePerSec, r.logger)
	universe, results, err := loader.Load(ctx, symbols, WarmupStart(cfg, start), end)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	if r.metrics != nil {
		missing := 0
		for _, res := range results {
			if res.Error != nil {
				missing++
			}
		}
		r.metrics.RecordLoads(len(results)-missing, missing)
	}

	report, err := engine.Run(ctx, universe)
	if err != nil {
		return nil, err
	}
	report.RunID = uuid.NewString()
	return report, nil
}

// symbols uses the configured list, or every symbol the store knows
func (r *Runner) symbols(ctx context.Context, cfg *strategyconfig.Config) ([]string, error) {
	if len(cfg.Universe.Symbols) > 0 {
		return cfg.Universe.Symbols, nil
	}

	lister, ok := r.store.(contracts.SymbolLister)
	if !ok {
		return nil, fmt.Errorf("%w: universe.symbols is empty and the store cannot list symbols", strategyconfig.ErrInvalidConfig)
	}
	symbols, err := lister.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return symbols, nil
}

// WarmupStart moves start back far enough to cover the lookback window.
// Bars are trading days, so the window is padded to calendar days generously.
func WarmupStart(cfg *strategyconfig.Config, start time.Time) time.Time {
	if start.IsZero() {
		return start
	}

	bars := cfg.Strategy.LookbackPeriod
	if cfg.Strategy.Kind == strategyconfig.KindMACross {
		bars = cfg.Strategy.MACross.LongWindow
		if cfg.Strategy.MACross.RSIPeriod+1 > bars {
			bars = cfg.Strategy.MACross.RSIPeriod + 1
		}
	}
	return start.AddDate(0, 0, -(bars*2 + 14))
}

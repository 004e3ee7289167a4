package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/aegis-rotation/internal/contracts"
)

// Registry holds all Prometheus metrics of the backtest service
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	reg *prometheus.Registry

	// Backtest runs
	RunDuration *prometheus.HistogramVec
	Runs        *prometheus.CounterVec
	ActiveRuns  prometheus.Gauge

	// Results of the latest completed run per strategy
	Trades      *prometheus.CounterVec
	LastReturn  *prometheus.GaugeVec
	LastSharpe  *prometheus.GaugeVec
	LastMaxDD   *prometheus.GaugeVec
	LastRunTime *prometheus.GaugeVec

	// Data loading
	SeriesLoaded *prometheus.CounterVec
}

// NewRegistry creates a private registry with process and Go collectors
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aegis_backtest_duration_seconds",
				Help:    "Duration of backtest runs in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"strategy", "result"},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_backtest_runs_total",
				Help: "Total number of backtest runs by trigger and result",
			},
			[]string{"trigger", "result"},
		),

		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aegis_backtest_active_runs",
				Help: "Number of backtests currently running",
			},
		),

		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_backtest_trades_total",
				Help: "Total simulated trades by action and reason",
			},
			[]string{"action", "reason"},
		),

		LastReturn: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aegis_backtest_last_total_return",
				Help: "Total return of the latest completed run",
			},
			[]string{"strategy"},
		),

		LastSharpe: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aegis_backtest_last_sharpe_ratio",
				Help: "Sharpe ratio of the latest completed run",
			},
			[]string{"strategy"},
		),

		LastMaxDD: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aegis_backtest_last_max_drawdown",
				Help: "Max drawdown of the latest completed run (<= 0)",
			},
			[]string{"strategy"},
		),

		LastRunTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aegis_backtest_last_run_timestamp_seconds",
				Help: "Unix time of the latest completed run",
			},
			[]string{"strategy"},
		),

		SeriesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_series_loaded_total",
				Help: "Price series loads by result",
			},
			[]string{"result"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.RunDuration,
		r.Runs,
		r.ActiveRuns,
		r.Trades,
		r.LastReturn,
		r.LastSharpe,
		r.LastMaxDD,
		r.LastRunTime,
		r.SeriesLoaded,
	)

	return r
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// RunTimer tracks one backtest run
type RunTimer struct {
	registry *Registry
	trigger  string
	start    time.Time
}

// StartRun marks a run as active; trigger is cli, api or scheduler
func (r *Registry) StartRun(trigger string) *RunTimer {
	r.ActiveRuns.Inc()
	return &RunTimer{registry: r, trigger: trigger, start: time.Now()}
}

// Finish records the run outcome; report is nil when the run failed
func (t *RunTimer) Finish(strategy string, report *contracts.Report, err error) {
	r := t.registry
	r.ActiveRuns.Dec()

	result := "success"
	if err != nil || report == nil {
		result = "error"
	}
	r.Runs.WithLabelValues(t.trigger, result).Inc()
	r.RunDuration.WithLabelValues(strategy, result).Observe(time.Since(t.start).Seconds())

	if result != "success" {
		return
	}

	for _, tr := range report.TradeHistory {
		r.Trades.WithLabelValues(string(tr.Action), string(tr.Reason)).Inc()
	}
	r.LastReturn.WithLabelValues(strategy).Set(report.TotalReturn)
	r.LastSharpe.WithLabelValues(strategy).Set(report.SharpeRatio)
	r.LastMaxDD.WithLabelValues(strategy).Set(report.MaxDrawdown)
	r.LastRunTime.WithLabelValues(strategy).SetToCurrentTime()
}

// RecordLoads counts loaded and missing series
func (r *Registry) RecordLoads(loaded, missing int) {
	r.SeriesLoaded.WithLabelValues("loaded").Add(float64(loaded))
	r.SeriesLoaded.WithLabelValues("missing").Add(float64(missing))
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/aegis-rotation/internal/backtest"
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// Runner runs one backtest; satisfied by *backtest.Runner
type Runner interface {
	Run(ctx context.Context, cfg *strategyconfig.Config, trigger string) (*contracts.Report, error)
}

// BacktestHandler handles backtest API endpoints
// ⭐ SSOT: 백테스트 API 핸들러는 이 구조체에서만
type BacktestHandler struct {
	runner  Runner
	reports *backtest.ReportStore
	base    *strategyconfig.Config
	logger  *logger.Logger
}

// NewBacktestHandler creates a handler; base is the config requests override
func NewBacktestHandler(runner Runner, reports *backtest.ReportStore, base *strategyconfig.Config, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		runner:  runner,
		reports: reports,
		base:    base,
		logger:  log,
	}
}

// BacktestRequest represents a backtest run request.
// Config is a partial config document merged over the server's base config.
type BacktestRequest struct {
	Config    json.RawMessage `json:"config,omitempty"`
	Symbols   []string        `json:"symbols,omitempty"`
	StartDate string          `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   string          `json:"end_date,omitempty"`   // YYYY-MM-DD
}

// Create runs a backtest and stores its report
// POST /api/backtests
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	cfg, err := h.buildConfig(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.runner.Run(r.Context(), cfg, backtest.TriggerAPI)
	if err != nil {
		if errors.Is(err, strategyconfig.ErrInvalidConfig) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Backtest run failed")
		respondError(w, http.StatusInternalServerError, "Backtest run failed")
		return
	}

	h.reports.Put(report)

	h.logger.WithFields(map[string]interface{}{
		"run_id":       report.RunID,
		"strategy":     report.Strategy,
		"total_return": report.TotalReturn,
	}).Info("Backtest stored")

	respondJSON(w, http.StatusCreated, report)
}

// List returns summaries of stored reports
// GET /api/backtests
func (h *BacktestHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   h.reports.Len(),
		"reports": h.reports.List(),
	})
}

// Get returns one stored report
// GET /api/backtests/{id}
func (h *BacktestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report, ok := h.reports.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Backtest not found")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// buildConfig overlays the request on a copy of the base config
func (h *BacktestHandler) buildConfig(req BacktestRequest) (*strategyconfig.Config, error) {
	cfg := h.base.Clone()

	if len(req.Config) > 0 {
		dec := json.NewDecoder(bytes.NewReader(req.Config))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.New("invalid config override: " + err.Error())
		}
	}
	if len(req.Symbols) > 0 {
		cfg.Universe.Symbols = req.Symbols
	}
	if req.StartDate != "" {
		cfg.Universe.StartDate = req.StartDate
	}
	if req.EndDate != "" {
		cfg.Universe.EndDate = req.EndDate
	}
	return cfg, nil
}

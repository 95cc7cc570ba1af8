// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/equisim/internal/backtest"
	"github.com/wonny/equisim/internal/marketdata"
	"github.com/wonny/equisim/internal/report"
	"github.com/wonny/equisim/internal/simconfig"
	"github.com/wonny/equisim/pkg/config"
	"github.com/wonny/equisim/pkg/logger"
)

// providerNames is the HTTP-visible list of signal providers the
// factory accepts.
var providerNames = []string{"momentum", "rsi", "macd", "bollinger", "zscore", "obv"}

// BacktestHandler handles simulation API endpoints
// ⭐ SSOT: 백테스트 API 핸들러는 이 구조체에서만
type BacktestHandler struct {
	config *config.Config
	logger *logger.Logger
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(cfg *config.Config, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{config: cfg, logger: log}
}

// ListProviders returns the available signal provider names
// GET /api/providers
func (h *BacktestHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providerNames,
	})
}

// ListTickers returns the tickers with data files on disk
// GET /api/tickers
func (h *BacktestHandler) ListTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := marketdata.ListTickers(h.config.DataDir)
	if err != nil {
		h.logger.WithError(err).Error("Failed to scan data directory")
		respondError(w, http.StatusInternalServerError, "Failed to scan data directory")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tickers": tickers,
		"count":   len(tickers),
	})
}

// runResponse is the POST /api/backtest payload: the run result plus
// where its artifacts were written.
type runResponse struct {
	Result     *backtest.Result `json:"result"`
	ResultsDir string           `json:"results_dir,omitempty"`
}

// RunBacktest runs one scenario from a JSON body shaped like the
// scenario YAML and returns the result
// POST /api/backtest
func (h *BacktestHandler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	var scenario simconfig.Config
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&scenario); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := simconfig.Validate(&scenario); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Load only what the scenario needs; the benchmark drives the
	// trading calendar.
	tickers := append([]string{}, scenario.Data.Tickers...)
	tickers = append(tickers, scenario.Data.Benchmark)
	store, err := marketdata.NewStore(h.config.DataDir, tickers, h.logger)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load market data")
		respondError(w, http.StatusInternalServerError, "Failed to load market data")
		return
	}

	engine, err := backtest.New(&scenario, store, h.logger)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := engine.Run()
	if err != nil {
		h.logger.WithError(err).WithField("scenario", scenario.Meta.ScenarioID).Error("Backtest run failed")
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := runResponse{Result: result}
	if dir, err := report.WriteRunArtifacts(h.config.ResultsDir, &scenario, result); err != nil {
		// The run itself succeeded; a reporting failure should not
		// turn the response into an error.
		h.logger.WithError(err).Warn("Failed to write run artifacts")
	} else {
		resp.ResultsDir = dir
	}

	respondJSON(w, http.StatusOK, resp)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

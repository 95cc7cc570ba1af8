// Package backtest drives the daily simulation loop: mark-to-market
// and equity recording every day, exit and rebalancing order flow on
// cadence-gated rebalance days.
package backtest

import (
	"fmt"
	"time"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/internal/execution"
	"github.com/wonny/equisim/internal/marketdata"
	"github.com/wonny/equisim/internal/portfolio"
	"github.com/wonny/equisim/internal/signals"
	"github.com/wonny/equisim/internal/simconfig"
	"github.com/wonny/equisim/internal/strategy"
	"github.com/wonny/equisim/pkg/logger"
)

// EquityPoint is one day's portfolio valuation, recorded before any
// of that day's order flow.
type EquityPoint struct {
	Date       time.Time `json:"date"`
	TotalValue float64   `json:"total_value"`
	Cash       float64   `json:"cash"`
}

// Result is everything one completed run exposes to reporting.
type Result struct {
	ScenarioID  string                `json:"scenario_id"`
	ConfigHash  string                `json:"config_hash"`
	Equity      []EquityPoint         `json:"equity"`
	FinalValue  float64               `json:"final_value"`
	FinalCash   float64               `json:"final_cash"`
	RealizedPnL float64               `json:"realized_pnl"`
	Positions   []portfolio.Position  `json:"positions"`
	Trades      []portfolio.RoundTrip `json:"trades"`
	Metrics     Metrics               `json:"metrics"`
}

// Engine owns one simulation run. Each run owns an independent
// ledger, score matrices and simulator; nothing is shared between
// concurrent runs
// ⭐ SSOT: 일일 시뮬레이션 루프는 여기서만
type Engine struct {
	cfg              *simconfig.Config
	source           contracts.BarSource
	providers        []contracts.SignalProvider
	aggregator       *signals.Aggregator
	logger           *logger.Logger
	tradeAuditor     contracts.TradeAuditor
	portfolioAuditor contracts.PortfolioAuditor
}

// New wires an engine from a validated scenario. Provider
// construction happens here so configuration errors (unknown name,
// bad params) abort before any simulation work starts.
func New(cfg *simconfig.Config, source contracts.BarSource, log *logger.Logger) (*Engine, error) {
	providers := make([]contracts.SignalProvider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := strategy.New(pc.Name, strategy.Params(pc.Params), source, log)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", cfg.Meta.ScenarioID, err)
		}
		providers = append(providers, p)
	}

	return &Engine{
		cfg:        cfg,
		source:     source,
		providers:  providers,
		aggregator: signals.NewAggregator(log),
		logger:     log,
	}, nil
}

// NewWithProviders wires an engine around pre-built providers,
// bypassing the factory. Tests use this to inject scripted providers
// the config file does not describe.
func NewWithProviders(cfg *simconfig.Config, source contracts.BarSource, providers []contracts.SignalProvider, log *logger.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		source:     source,
		providers:  providers,
		aggregator: signals.NewAggregator(log),
		logger:     log,
	}
}

// WithTradeAuditor attaches a per-trade audit sink.
func (e *Engine) WithTradeAuditor(a contracts.TradeAuditor) *Engine {
	e.tradeAuditor = a
	return e
}

// WithPortfolioAuditor attaches a daily portfolio-state audit sink.
func (e *Engine) WithPortfolioAuditor(a contracts.PortfolioAuditor) *Engine {
	e.portfolioAuditor = a
	return e
}

// Run executes the scenario over its full date range.
func (e *Engine) Run() (*Result, error) {
	cfg := e.cfg

	calendar, err := marketdata.Calendar(e.source, cfg.Data.Benchmark, cfg.Data.Start(), cfg.Data.End())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", cfg.Meta.ScenarioID, err)
	}

	e.logger.WithFields(map[string]interface{}{
		"scenario":  cfg.Meta.ScenarioID,
		"days":      len(calendar),
		"tickers":   len(cfg.Data.Tickers),
		"providers": len(e.providers),
	}).Info("Starting backtest run")

	// Score matrices are computed once up front: every provider sees
	// the same frozen view of history, and the day loop stays free of
	// indicator math.
	matrices := make([]*contracts.ScoreMatrix, 0, len(e.providers))
	for _, p := range e.providers {
		matrix, err := p.ComputeScores(calendar, cfg.Data.Tickers)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name(), err)
		}
		matrices = append(matrices, matrix)
	}

	ledger := portfolio.NewLedger(e.source, cfg.Portfolio.InitialCash, e.logger)
	generator := portfolio.NewOrderGenerator(ledger, e.source, portfolio.ExitRules{
		StopLossPct:   cfg.Exits.StopLossPct,
		TakeProfitPct: cfg.Exits.TakeProfitPct,
	}, e.tradeAuditor, e.logger)
	simulator := execution.NewSimulator(e.source, calendar, execution.CostModel{
		Commission:  cfg.Costs.Commission,
		SlippagePct: cfg.Costs.SlippagePct,
	}, e.logger)

	equity := make([]EquityPoint, 0, len(calendar))

	// Starting the counter at the cadence makes day one a rebalance
	// day; it resets to 1 after each rebalance.
	cadence := cfg.Portfolio.RebalanceCadence
	daysSinceRebalance := cadence

	for _, day := range calendar {
		// Equity is recorded before the day's order flow, so the
		// curve reflects the book as the market opened it.
		total := ledger.MarkToMarket(day)
		equity = append(equity, EquityPoint{Date: day, TotalValue: total, Cash: ledger.Cash()})

		if daysSinceRebalance >= cadence {
			exited := e.applyExits(generator, simulator, ledger, day)
			e.applyRebalance(generator, simulator, ledger, matrices, day, exited)
			daysSinceRebalance = 1
		} else {
			daysSinceRebalance++
		}

		if e.portfolioAuditor != nil {
			e.portfolioAuditor.LogPortfolioState(day, ledger.MarkToMarket(day), ledger.Cash(), ledger.RealizedPnL(), ledger.PositionCount())
		}
	}

	finalValue := ledger.TotalValue()
	if len(calendar) > 0 {
		finalValue = ledger.MarkToMarket(calendar[len(calendar)-1])
	}

	result := &Result{
		ScenarioID:  cfg.Meta.ScenarioID,
		Equity:      equity,
		FinalValue:  finalValue,
		FinalCash:   ledger.Cash(),
		RealizedPnL: ledger.RealizedPnL(),
		Trades:      ledger.TradeHistory(),
		Metrics:     ComputeMetrics(cfg.Portfolio.InitialCash, equity, ledger.TradeHistory()),
	}
	if hash, err := simconfig.Hash(cfg); err == nil {
		result.ConfigHash = hash
	}
	for _, ticker := range ledger.HeldTickers() {
		if pos, ok := ledger.Position(ticker); ok {
			result.Positions = append(result.Positions, pos)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"scenario":     cfg.Meta.ScenarioID,
		"final_value":  fmt.Sprintf("%.2f", finalValue),
		"total_return": fmt.Sprintf("%.2f%%", result.Metrics.TotalReturnPct),
		"trades":       result.Metrics.TotalTrades,
	}).Info("Backtest run finished")

	return result, nil
}

// applyExits generates and settles stop-loss/take-profit orders,
// returning the tickers whose exits actually filled. Those tickers
// forfeit their top-N slot for the rest of the day.
func (e *Engine) applyExits(generator *portfolio.OrderGenerator, simulator *execution.Simulator, ledger *portfolio.Ledger, day time.Time) map[string]bool {
	exited := make(map[string]bool)
	for _, order := range generator.ExitOrders(day) {
		fill := simulator.ExecuteOrder(&order, day, ledger.SharesHeld(order.Ticker))
		if fill == nil {
			continue
		}
		ledger.ApplyFill(fill, day)
		exited[order.Ticker] = true
	}
	return exited
}

// applyRebalance aggregates the day's composite scores and settles
// the resulting target-weight orders. A day with no positive
// composite score has no targets to rebalance toward: holdings ride
// untouched rather than being liquidated into silence.
func (e *Engine) applyRebalance(generator *portfolio.OrderGenerator, simulator *execution.Simulator, ledger *portfolio.Ledger, matrices []*contracts.ScoreMatrix, day time.Time, exited map[string]bool) {
	composite := e.aggregator.Aggregate(day, matrices)
	if len(composite.Total) == 0 {
		return
	}

	orders := generator.RebalanceOrders(day, composite, e.cfg.Portfolio.TopN, exited)
	for i := range orders {
		order := &orders[i]
		fill := simulator.ExecuteOrder(order, day, ledger.SharesHeld(order.Ticker))
		if fill == nil {
			continue
		}
		ledger.ApplyFill(fill, day)
	}
}

// Package execution converts orders into simulated fills. Fills
// always happen on the first trading day strictly after the order
// date, at that day's typical price plus slippage — decisions made on
// day N can never touch day N's own prices.
package execution

import (
	"time"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/internal/marketdata"
	"github.com/wonny/equisim/pkg/logger"
)

// CostModel holds the friction applied to every fill.
type CostModel struct {
	Commission  float64 // fixed amount per fill
	SlippagePct float64 // fractional, e.g. 0.001 = 0.1%
}

// Simulator prices orders against the precomputed trading-day
// calendar. A nil result means the order expired or could not be
// priced; expiry is logged, never fatal
// ⭐ SSOT: 체결 가격/수수료 계산은 여기서만
type Simulator struct {
	source   contracts.BarSource
	calendar []time.Time
	costs    CostModel
	logger   *logger.Logger
}

// NewSimulator creates a simulator over a fixed calendar.
func NewSimulator(source contracts.BarSource, calendar []time.Time, costs CostModel, log *logger.Logger) *Simulator {
	return &Simulator{source: source, calendar: calendar, costs: costs, logger: log}
}

// ExecuteOrder fills one order at the next trading day after
// orderDate. Returns nil when there is no next trading day, the
// ticker has no bar that day, the bar prices at zero, or the resolved
// quantity is not positive. ALL quantities resolve against heldShares
// at fill time, not at order creation.
func (s *Simulator) ExecuteOrder(order *contracts.Order, orderDate time.Time, heldShares int) *contracts.Fill {
	fillDate, ok := marketdata.NextTradingDay(s.calendar, orderDate)
	if !ok {
		s.logger.WithFields(map[string]interface{}{
			"ticker": order.Ticker,
			"side":   string(order.Side),
			"date":   orderDate.Format("2006-01-02"),
		}).Warn("Order expired: no trading day after order date")
		return nil
	}

	bar, ok := s.source.Bar(order.Ticker, fillDate)
	if !ok {
		s.logger.WithFields(map[string]interface{}{
			"ticker": order.Ticker,
			"date":   fillDate.Format("2006-01-02"),
		}).Warn("Order dropped: no bar on fill date")
		return nil
	}

	price := bar.TypicalPrice()
	if price <= 0 {
		return nil
	}

	// Slippage always moves the price against the trader.
	switch order.Side {
	case contracts.SideBuy:
		price *= 1 + s.costs.SlippagePct
	case contracts.SideSell:
		price *= 1 - s.costs.SlippagePct
	}

	qty := order.Qty.Resolve(heldShares)
	if qty <= 0 {
		return nil
	}

	return &contracts.Fill{
		Side:       order.Side,
		Ticker:     order.Ticker,
		Qty:        qty,
		Price:      price,
		Commission: s.costs.Commission,
		Date:       fillDate,
	}
}

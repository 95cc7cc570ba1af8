package portfolio

import (
	"time"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// ExitRules holds the percentage stop-loss / take-profit thresholds.
// A zero percentage disables that rule.
type ExitRules struct {
	StopLossPct   float64 // e.g. 0.10 sells when low <= basis * 0.90
	TakeProfitPct float64 // e.g. 0.25 sells when high >= basis * 1.25
}

// OrderGenerator derives exit and rebalancing orders from ledger state
// and aggregated scores
// ⭐ SSOT: 주문 생성은 여기서만
type OrderGenerator struct {
	ledger  *Ledger
	source  contracts.BarSource
	rules   ExitRules
	auditor contracts.TradeAuditor
	logger  *logger.Logger
}

// NewOrderGenerator creates an order generator for one ledger. auditor
// may be nil.
func NewOrderGenerator(ledger *Ledger, source contracts.BarSource, rules ExitRules, auditor contracts.TradeAuditor, log *logger.Logger) *OrderGenerator {
	return &OrderGenerator{
		ledger:  ledger,
		source:  source,
		rules:   rules,
		auditor: auditor,
		logger:  log,
	}
}

// ExitOrders evaluates the configured exit rules against the day's bar
// for every open position. Rules are checked in a fixed order —
// stop-loss first, then take-profit — and at most one exit order is
// generated per ticker per day.
func (g *OrderGenerator) ExitOrders(date time.Time) []contracts.Order {
	var orders []contracts.Order

	for _, ticker := range g.ledger.HeldTickers() {
		pos, _ := g.ledger.Position(ticker)
		bar, ok := g.source.Bar(ticker, date)
		if !ok {
			continue
		}

		if g.rules.StopLossPct > 0 {
			stopPrice := pos.AvgCost * (1 - g.rules.StopLossPct)
			if bar.Low <= stopPrice {
				orders = append(orders, contracts.Order{
					Side:   contracts.SideSell,
					Ticker: ticker,
					Qty:    contracts.AllHeld(),
					Reason: "Stop-Loss",
				})
				if g.auditor != nil {
					g.auditor.LogTrade(date, ticker, contracts.SideSell, pos.Shares, stopPrice, "Stop-Loss", 0, nil)
				}
				continue
			}
		}

		if g.rules.TakeProfitPct > 0 {
			takePrice := pos.AvgCost * (1 + g.rules.TakeProfitPct)
			if bar.High >= takePrice {
				orders = append(orders, contracts.Order{
					Side:   contracts.SideSell,
					Ticker: ticker,
					Qty:    contracts.AllHeld(),
					Reason: "Take-Profit",
				})
				if g.auditor != nil {
					g.auditor.LogTrade(date, ticker, contracts.SideSell, pos.Shares, takePrice, "Take-Profit", 0, nil)
				}
			}
		}
	}

	return orders
}

// RebalanceOrders aligns holdings with the day's target set: the top-n
// tickers by composite score, equal-weighted at totalValue/topN each.
// Score decides selection only, never sizing. exited holds tickers
// already sold today by an exit rule; they lose their slot and are not
// re-bought the same day. Must be called after exit fills are applied
// so the target computation sees post-exit holdings.
func (g *OrderGenerator) RebalanceOrders(date time.Time, scores *contracts.CompositeScores, topN int, exited map[string]bool) []contracts.Order {
	targets := scores.TopN(topN, exited)
	targetSet := make(map[string]bool, len(targets))
	for _, ticker := range targets {
		targetSet[ticker] = true
	}

	totalValue := g.ledger.MarkToMarket(date)
	targetValue := 0.0
	if topN > 0 {
		targetValue = totalValue / float64(topN)
	}

	var orders []contracts.Order

	// Full sells for holdings that fell out of the target set.
	for _, ticker := range g.ledger.HeldTickers() {
		if targetSet[ticker] {
			continue
		}
		orders = append(orders, contracts.Order{
			Side:      contracts.SideSell,
			Ticker:    ticker,
			Qty:       contracts.AllHeld(),
			Reason:    "Rebalance",
			Score:     scores.Total[ticker],
			Breakdown: scores.Breakdown[ticker],
		})
		if g.auditor != nil {
			if bar, ok := g.source.Bar(ticker, date); ok {
				g.auditor.LogTrade(date, ticker, contracts.SideSell, g.ledger.SharesHeld(ticker), bar.Close, "Rebalance", scores.Total[ticker], scores.Breakdown[ticker])
			}
		}
	}

	// Delta orders toward the equal-weight target for each long target.
	for _, ticker := range targets {
		bar, ok := g.source.Bar(ticker, date)
		if !ok {
			continue
		}
		price := bar.Close
		if price <= 0 {
			continue
		}

		currentShares := g.ledger.SharesHeld(ticker)
		currentValue := float64(currentShares) * price
		valueDiff := targetValue - currentValue
		qty := int(valueDiff / price)

		if qty > 0 {
			orders = append(orders, contracts.Order{
				Side:      contracts.SideBuy,
				Ticker:    ticker,
				Qty:       contracts.Shares(qty),
				Reason:    "Buy",
				Score:     scores.Total[ticker],
				Breakdown: scores.Breakdown[ticker],
			})
			if g.auditor != nil {
				g.auditor.LogTrade(date, ticker, contracts.SideBuy, qty, price, "Buy", scores.Total[ticker], scores.Breakdown[ticker])
			}
		} else if qty < 0 {
			// Trim an overweight position; never sell more than held.
			sellQty := -qty
			if sellQty > currentShares {
				sellQty = currentShares
			}
			if sellQty > 0 {
				orders = append(orders, contracts.Order{
					Side:      contracts.SideSell,
					Ticker:    ticker,
					Qty:       contracts.Shares(sellQty),
					Reason:    "Rebalance",
					Score:     scores.Total[ticker],
					Breakdown: scores.Breakdown[ticker],
				})
				if g.auditor != nil {
					g.auditor.LogTrade(date, ticker, contracts.SideSell, sellQty, price, "Rebalance", scores.Total[ticker], scores.Breakdown[ticker])
				}
			}
		}
	}

	return orders
}

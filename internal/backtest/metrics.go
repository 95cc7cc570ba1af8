package backtest

import (
	"math"

	"github.com/wonny/equisim/internal/portfolio"
)

// tradingDaysPerYear is the annualization convention for daily bars.
const tradingDaysPerYear = 252

// Metrics summarizes one run. Percentages are expressed as percent,
// not fractions; MaxDrawdownPct is negative or zero.
type Metrics struct {
	TotalReturnPct      float64 `json:"total_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	TotalTrades         int     `json:"total_trades"`
	WinningTrades       int     `json:"winning_trades"`
	LosingTrades        int     `json:"losing_trades"`
	WinRatePct          float64 `json:"win_rate_pct"`
	AvgWinAmount        float64 `json:"avg_win_amount"`
	AvgLossAmount       float64 `json:"avg_loss_amount"`
}

// ComputeMetrics derives performance statistics from the equity curve
// and the closed round trips.
func ComputeMetrics(initialCash float64, equity []EquityPoint, trades []portfolio.RoundTrip) Metrics {
	var m Metrics
	if len(equity) == 0 || initialCash <= 0 {
		return m
	}

	startValue := equity[0].TotalValue
	endValue := equity[len(equity)-1].TotalValue
	if startValue > 0 {
		totalReturn := endValue/startValue - 1
		m.TotalReturnPct = totalReturn * 100
		m.AnnualizedReturnPct = (math.Pow(1+totalReturn, tradingDaysPerYear/float64(len(equity))) - 1) * 100
	}

	m.SharpeRatio = sharpeRatio(equity)
	m.MaxDrawdownPct = maxDrawdown(equity) * 100

	for _, trade := range trades {
		m.TotalTrades++
		if trade.PnL > 0 {
			m.WinningTrades++
			m.AvgWinAmount += trade.PnL
		} else {
			m.LosingTrades++
			m.AvgLossAmount += trade.PnL
		}
	}
	if m.WinningTrades > 0 {
		m.AvgWinAmount /= float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLossAmount /= float64(m.LosingTrades)
	}
	if m.TotalTrades > 0 {
		m.WinRatePct = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}

	return m
}

// sharpeRatio annualizes the mean/stddev of daily returns. The first
// day has no prior value and counts as a zero return. A flat curve
// (stddev under 1e-8) scores 0, not NaN.
func sharpeRatio(equity []EquityPoint) float64 {
	returns := dailyReturns(equity)
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	// Sample variance, matching the usual daily-returns convention.
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)

	if std < 1e-8 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the deepest peak-to-trough decline as a
// non-positive fraction.
func maxDrawdown(equity []EquityPoint) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, p := range equity {
		if p.TotalValue > peak {
			peak = p.TotalValue
		}
		if peak > 0 {
			dd := (p.TotalValue - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func dailyReturns(equity []EquityPoint) []float64 {
	returns := make([]float64, len(equity))
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].TotalValue
		if prev > 0 {
			returns[i] = equity[i].TotalValue/prev - 1
		}
	}
	return returns
}

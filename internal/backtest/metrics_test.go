package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/equisim/internal/portfolio"
)

func equityCurve(values ...float64) []EquityPoint {
	points := make([]EquityPoint, len(values))
	for i, v := range values {
		points[i] = EquityPoint{Date: d(i + 1), TotalValue: v, Cash: v}
	}
	return points
}

func TestComputeMetrics_Returns(t *testing.T) {
	m := ComputeMetrics(1000, equityCurve(1000, 1050, 1100), nil)

	assert.InDelta(t, 10.0, m.TotalReturnPct, 1e-9)

	// (1.10)^(252/3) - 1, annualized over three trading days.
	wantAnnualized := (math.Pow(1.10, 252.0/3.0) - 1) * 100
	assert.InDelta(t, wantAnnualized, m.AnnualizedReturnPct, 1e-6)
}

func TestComputeMetrics_FlatCurveHasZeroSharpe(t *testing.T) {
	m := ComputeMetrics(1000, equityCurve(1000, 1000, 1000, 1000), nil)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.MaxDrawdownPct)
}

func TestComputeMetrics_MaxDrawdown(t *testing.T) {
	// Peak 1200, trough 900: drawdown -25%.
	m := ComputeMetrics(1000, equityCurve(1000, 1200, 900, 1100), nil)
	assert.InDelta(t, -25.0, m.MaxDrawdownPct, 1e-9)
}

func TestComputeMetrics_TradeStats(t *testing.T) {
	trades := []portfolio.RoundTrip{
		{Ticker: "AAPL", PnL: 100},
		{Ticker: "MSFT", PnL: 50},
		{Ticker: "TSLA", PnL: -30},
	}
	m := ComputeMetrics(1000, equityCurve(1000, 1120), trades)

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 66.666, m.WinRatePct, 0.01)
	assert.InDelta(t, 75.0, m.AvgWinAmount, 1e-9)
	assert.InDelta(t, -30.0, m.AvgLossAmount, 1e-9)
}

func TestComputeMetrics_EmptyInputs(t *testing.T) {
	m := ComputeMetrics(1000, nil, nil)
	assert.Zero(t, m.TotalReturnPct)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.TotalTrades)
}

func TestComputeMetrics_SharpeSign(t *testing.T) {
	up := ComputeMetrics(1000, equityCurve(1000, 1010, 1025, 1030), nil)
	down := ComputeMetrics(1000, equityCurve(1000, 990, 975, 970), nil)

	assert.Positive(t, up.SharpeRatio)
	assert.Negative(t, down.SharpeRatio)
}

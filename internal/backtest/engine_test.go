package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/internal/simconfig"
	"github.com/wonny/equisim/pkg/logger"
)

// fakeSource serves hand-built bars keyed by ticker and date.
type fakeSource struct {
	bars   map[string]map[time.Time]*contracts.Bar
	series map[string]*contracts.Series
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bars:   make(map[string]map[time.Time]*contracts.Bar),
		series: make(map[string]*contracts.Series),
	}
}

// add appends one bar; call in date order per ticker.
func (f *fakeSource) add(ticker string, date time.Time, high, low, closePx float64) {
	if f.bars[ticker] == nil {
		f.bars[ticker] = make(map[time.Time]*contracts.Bar)
	}
	f.bars[ticker][date] = &contracts.Bar{
		Ticker: ticker, Date: date,
		Open: closePx, High: high, Low: low, Close: closePx, Volume: 1000,
	}
	f.rebuildSeries(ticker)
}

func (f *fakeSource) rebuildSeries(ticker string) {
	var dates []time.Time
	for d := range f.bars[ticker] {
		dates = append(dates, d)
	}
	for i := 0; i < len(dates); i++ {
		for j := i + 1; j < len(dates); j++ {
			if dates[j].Before(dates[i]) {
				dates[i], dates[j] = dates[j], dates[i]
			}
		}
	}
	n := len(dates)
	open, high, low, closes, volume := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, d := range dates {
		b := f.bars[ticker][d]
		open[i], high[i], low[i], closes[i], volume[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}
	f.series[ticker] = contracts.NewSeries(ticker, dates, open, high, low, closes, volume)
}

func (f *fakeSource) Bar(ticker string, date time.Time) (*contracts.Bar, bool) {
	b, ok := f.bars[ticker][date]
	return b, ok
}

func (f *fakeSource) History(ticker string) (*contracts.Series, bool) {
	s, ok := f.series[ticker]
	return s, ok
}

func (f *fakeSource) Tickers() []string {
	out := make([]string, 0, len(f.series))
	for t := range f.series {
		out = append(out, t)
	}
	return out
}

// scriptedProvider returns fixed raw scores per ticker per day index.
type scriptedProvider struct {
	name   string
	scores map[string][]float64
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) ComputeScores(calendar []time.Time, universe []string) (*contracts.ScoreMatrix, error) {
	matrix := contracts.NewScoreMatrix(p.name, calendar, universe)
	for ti, ticker := range universe {
		series := p.scores[ticker]
		for di := range calendar {
			if di < len(series) {
				matrix.Set(di, ti, series[di])
			}
		}
	}
	return matrix, nil
}

func d(day int) time.Time {
	return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
}

// flatMarket builds AAPL plus an SPY benchmark trading every day at a
// constant price.
func flatMarket(days int, price float64) *fakeSource {
	src := newFakeSource()
	for i := 1; i <= days; i++ {
		src.add("AAPL", d(i), price, price, price)
		src.add("SPY", d(i), 400, 400, 400)
	}
	return src
}

func scenario(days, topN, cadence int) *simconfig.Config {
	return &simconfig.Config{
		Meta: simconfig.Meta{ScenarioID: "test"},
		Data: simconfig.Data{
			Tickers:   []string{"AAPL"},
			Benchmark: "SPY",
			StartDate: d(1).Format("2006-01-02"),
			EndDate:   d(days).Format("2006-01-02"),
		},
		Portfolio: simconfig.Portfolio{InitialCash: 1000, TopN: topN, RebalanceCadence: cadence},
	}
}

func TestEngine_SingleSignalBuyAndHold(t *testing.T) {
	src := flatMarket(3, 100)
	cfg := scenario(3, 1, 1)
	provider := &scriptedProvider{name: "scripted", scores: map[string][]float64{
		"AAPL": {5, 0, 0},
	}}

	engine := NewWithProviders(cfg, src, []contracts.SignalProvider{provider}, logger.NewNop())
	result, err := engine.Run()
	require.NoError(t, err)

	// Day 1's signal buys floor(1000/100) = 10 shares, filled at day
	// 2's typical price. Quiet days 2-3 leave the position riding.
	require.Len(t, result.Positions, 1)
	assert.Equal(t, "AAPL", result.Positions[0].Ticker)
	assert.Equal(t, 10, result.Positions[0].Shares)
	assert.InDelta(t, 100.0, result.Positions[0].AvgCost, 1e-9)
	assert.Empty(t, result.Trades, "no round trips without new signals")
	assert.InDelta(t, 1000.0, result.FinalValue, 1e-9)

	require.Len(t, result.Equity, 3)
	assert.InDelta(t, 1000.0, result.Equity[0].TotalValue, 1e-9)
	assert.InDelta(t, 1000.0, result.Equity[2].TotalValue, 1e-9)
}

func TestEngine_StopLossRoundTrip(t *testing.T) {
	src := newFakeSource()
	src.add("AAPL", d(1), 100, 100, 100)
	src.add("AAPL", d(2), 100, 100, 100) // buy fills here at 100
	src.add("AAPL", d(3), 90, 85, 90)    // low 85 breaches the 90 stop
	src.add("AAPL", d(4), 88, 88, 88)    // stop sell fills here at 88
	for i := 1; i <= 4; i++ {
		src.add("SPY", d(i), 400, 400, 400)
	}

	cfg := scenario(4, 1, 1)
	cfg.Exits.StopLossPct = 0.1
	provider := &scriptedProvider{name: "scripted", scores: map[string][]float64{
		"AAPL": {5, 0, 0, 0},
	}}

	engine := NewWithProviders(cfg, src, []contracts.SignalProvider{provider}, logger.NewNop())
	result, err := engine.Run()
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, "AAPL", result.Trades[0].Ticker)
	assert.InDelta(t, -120.0, result.Trades[0].PnL, 1e-9, "(88-100) x 10 shares")
	assert.InDelta(t, -120.0, result.RealizedPnL, 1e-9)
	assert.Empty(t, result.Positions)
	assert.InDelta(t, 880.0, result.FinalCash, 1e-9)
}

func TestEngine_ExitsSkippedOffCadence(t *testing.T) {
	src := newFakeSource()
	src.add("AAPL", d(1), 100, 100, 100)
	src.add("AAPL", d(2), 100, 50, 100) // crash day, but not a rebalance day
	src.add("AAPL", d(3), 100, 100, 100)
	for i := 1; i <= 3; i++ {
		src.add("SPY", d(i), 400, 400, 400)
	}

	cfg := scenario(3, 1, 3)
	cfg.Exits.StopLossPct = 0.1
	provider := &scriptedProvider{name: "scripted", scores: map[string][]float64{
		"AAPL": {5, 5, 5},
	}}

	engine := NewWithProviders(cfg, src, []contracts.SignalProvider{provider}, logger.NewNop())
	result, err := engine.Run()
	require.NoError(t, err)

	// The crash happens while the cadence gate is closed, so the
	// stop-loss is never evaluated and the position survives.
	assert.Empty(t, result.Trades)
	require.Len(t, result.Positions, 1)
	assert.Equal(t, 10, result.Positions[0].Shares)
}

func TestEngine_NoChurnAtTarget(t *testing.T) {
	src := flatMarket(4, 100)
	cfg := scenario(4, 1, 2)
	provider := &scriptedProvider{name: "scripted", scores: map[string][]float64{
		"AAPL": {5, 5, 5, 5},
	}}

	engine := NewWithProviders(cfg, src, []contracts.SignalProvider{provider}, logger.NewNop())
	result, err := engine.Run()
	require.NoError(t, err)

	// Rebalance days 1 and 3: day 3 already holds the equal-weight
	// target, so no delta order is emitted.
	assert.Empty(t, result.Trades)
	require.Len(t, result.Positions, 1)
	assert.Equal(t, 10, result.Positions[0].Shares)
	for _, p := range result.Equity {
		assert.InDelta(t, 1000.0, p.TotalValue, 1e-9)
	}
}

func TestEngine_CommissionAndSlippageAccounting(t *testing.T) {
	src := newFakeSource()
	prices := []float64{100, 102, 98, 103, 101}
	for i, px := range prices {
		src.add("AAPL", d(i+1), px+1, px-1, px)
		src.add("SPY", d(i+1), 400, 400, 400)
	}

	cfg := scenario(5, 1, 1)
	cfg.Costs.Commission = 1
	cfg.Costs.SlippagePct = 0.001
	provider := &scriptedProvider{name: "scripted", scores: map[string][]float64{
		"AAPL": {5, 5, 5, 5, 5},
	}}

	engine := NewWithProviders(cfg, src, []contracts.SignalProvider{provider}, logger.NewNop())
	result, err := engine.Run()
	require.NoError(t, err)

	// Day 1 buys floor(1000/100) = 10 shares, filled at day 2's
	// typical price 102 slipped up 0.1%, plus 1.00 commission.
	wantCash := 1000.0 - 10*102*1.001 - 1
	require.Len(t, result.Positions, 1)
	assert.Equal(t, 10, result.Positions[0].Shares)
	assert.InDelta(t, wantCash, result.FinalCash, 1e-9)

	// Later rebalance days truncate the tiny dollar drift to a zero
	// share delta, so the one fill is the only fill.
	assert.Empty(t, result.Trades)
	assert.InDelta(t, 10*prices[4]+wantCash, result.FinalValue, 1e-9)

	// Recorded equity is the pre-trade view: day 1 is all cash, day
	// 3 onward reflects the filled position.
	assert.InDelta(t, 1000.0, result.Equity[0].TotalValue, 1e-9)
	assert.InDelta(t, 10*prices[2]+wantCash, result.Equity[2].TotalValue, 1e-9)
}

func TestEngine_ProviderSetupErrorAborts(t *testing.T) {
	src := flatMarket(3, 100)
	cfg := scenario(3, 1, 1)
	cfg.Providers = []simconfig.Provider{{Name: "astrology"}}

	_, err := New(cfg, src, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "astrology")
}

func TestEngine_UnknownBenchmarkFails(t *testing.T) {
	src := flatMarket(3, 100)
	cfg := scenario(3, 1, 1)
	cfg.Data.Benchmark = "GHOST"

	engine := NewWithProviders(cfg, src, []contracts.SignalProvider{
		&scriptedProvider{name: "scripted"},
	}, logger.NewNop())
	_, err := engine.Run()
	assert.Error(t, err)
}

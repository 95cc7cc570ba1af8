package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// stubSource serves hand-built series for provider tests.
type stubSource struct {
	series map[string]*contracts.Series
}

func (s *stubSource) Bar(ticker string, date time.Time) (*contracts.Bar, bool) {
	sr, ok := s.series[ticker]
	if !ok {
		return nil, false
	}
	return sr.At(date)
}

func (s *stubSource) History(ticker string) (*contracts.Series, bool) {
	sr, ok := s.series[ticker]
	return sr, ok
}

func (s *stubSource) Tickers() []string {
	out := make([]string, 0, len(s.series))
	for t := range s.series {
		out = append(out, t)
	}
	return out
}

// seriesDates generates n consecutive UTC days starting 2024-01-01.
func seriesDates(n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	return dates
}

// seriesOf builds a series where open/high/low track the closes and
// volume is constant, enough for close-driven indicators.
func seriesOf(ticker string, closes []float64) *contracts.Series {
	n := len(closes)
	dates := seriesDates(n)
	volume := make([]float64, n)
	cols := make([]float64, n)
	for i := range closes {
		volume[i] = 10
		cols[i] = closes[i]
	}
	return contracts.NewSeries(ticker, dates, cols, cols, cols, closes, volume)
}

func sourceOf(ticker string, closes []float64) (*stubSource, []time.Time) {
	s := seriesOf(ticker, closes)
	return &stubSource{series: map[string]*contracts.Series{ticker: s}}, s.Dates
}

func TestFactory_KnownProviders(t *testing.T) {
	src := &stubSource{series: map[string]*contracts.Series{}}
	for _, name := range []string{"momentum", "rsi", "macd", "bollinger", "zscore", "obv"} {
		p, err := New(name, nil, src, logger.NewNop())
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestFactory_UnknownProvider(t *testing.T) {
	_, err := New("astrology", nil, &stubSource{}, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "astrology")
}

func TestFactory_InvalidParams(t *testing.T) {
	src := &stubSource{}
	log := logger.NewNop()

	_, err := New("momentum", Params{"window": -1}, src, log)
	assert.Error(t, err)

	_, err = New("rsi", Params{"oversold": 70, "overbought": 30}, src, log)
	assert.Error(t, err)

	_, err = New("macd", Params{"fast": 26, "slow": 12}, src, log)
	assert.Error(t, err)

	_, err = New("zscore", Params{"buy_threshold": 1.0, "sell_threshold": 0.0}, src, log)
	assert.Error(t, err)
}

func TestMomentum_Scores(t *testing.T) {
	src, dates := sourceOf("AAPL", []float64{100, 100, 110, 99})
	p, err := NewMomentum(src, logger.NewNop(), Params{"window": 2})
	require.NoError(t, err)

	matrix, err := p.ComputeScores(dates, []string{"AAPL"})
	require.NoError(t, err)

	row := func(i int) float64 {
		r, ok := matrix.Row(dates[i])
		require.True(t, ok)
		return r[0]
	}
	assert.Zero(t, row(0), "warmup stays neutral")
	assert.Zero(t, row(1), "warmup stays neutral")
	assert.InDelta(t, 0.10, row(2), 1e-9, "positive momentum scores its gain")
	assert.Equal(t, -1.0, row(3), "negative momentum is an exit")
}

func TestRSI_Scores(t *testing.T) {
	falling := []float64{100, 99, 98, 97, 96, 95, 94}
	src, dates := sourceOf("AAPL", falling)
	p, err := NewRSI(src, logger.NewNop(), Params{"period": 3})
	require.NoError(t, err)

	matrix, err := p.ComputeScores(dates, []string{"AAPL"})
	require.NoError(t, err)

	// All losses pin RSI at 0, the deepest oversold reading.
	r, ok := matrix.Row(dates[5])
	require.True(t, ok)
	assert.InDelta(t, 1.0, r[0], 1e-9)

	rising := []float64{100, 101, 102, 103, 104, 105, 106}
	src2, dates2 := sourceOf("AAPL", rising)
	p2, err := NewRSI(src2, logger.NewNop(), Params{"period": 3})
	require.NoError(t, err)
	matrix2, err := p2.ComputeScores(dates2, []string{"AAPL"})
	require.NoError(t, err)

	r2, ok := matrix2.Row(dates2[5])
	require.True(t, ok)
	assert.Equal(t, -1.0, r2[0], "pinned overbought is an exit")
}

func TestBollinger_BreakoutAndExit(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 110, 100}
	src, dates := sourceOf("AAPL", closes)
	p, err := NewBollinger(src, logger.NewNop(), Params{"period": 5, "stddev": 1.5})
	require.NoError(t, err)

	matrix, err := p.ComputeScores(dates, []string{"AAPL"})
	require.NoError(t, err)

	// Spike bar: window mean 102, population std 4, band at 108.
	r, ok := matrix.Row(dates[5])
	require.True(t, ok)
	assert.InDelta(t, 2.0, r[0], 1e-9, "breakout scores the close's Z-score")

	// Next bar drops back through the middle band.
	r, ok = matrix.Row(dates[6])
	require.True(t, ok)
	assert.Equal(t, -1.0, r[0])
}

func TestZScore_DeepOversold(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 40}
	src, dates := sourceOf("AAPL", closes)
	p, err := NewZScore(src, logger.NewNop(), Params{"lookback": 5, "buy_threshold": -1.5})
	require.NoError(t, err)

	matrix, err := p.ComputeScores(dates, []string{"AAPL"})
	require.NoError(t, err)

	// Window mean 88, population std 24, Z = -2: score is the
	// negated Z-score so deeper oversold ranks higher.
	r, ok := matrix.Row(dates[5])
	require.True(t, ok)
	assert.InDelta(t, 2.0, r[0], 1e-9)

	// Flat stretch before the crash stays neutral.
	r, ok = matrix.Row(dates[4])
	require.True(t, ok)
	assert.Zero(t, r[0])
}

func TestOBV_Crossover(t *testing.T) {
	// OBV walks 10, 0, -10, 0, 10; with a 2-bar SMA the up-cross
	// lands on the fourth bar with Z-score exactly 1.
	closes := []float64{100, 99, 98, 99, 100}
	src, dates := sourceOf("AAPL", closes)
	p, err := NewOBV(src, logger.NewNop(), Params{"sma_period": 2})
	require.NoError(t, err)

	matrix, err := p.ComputeScores(dates, []string{"AAPL"})
	require.NoError(t, err)

	want := []float64{0, 0, 0, 1, 0}
	for i, date := range dates {
		r, ok := matrix.Row(date)
		require.True(t, ok)
		assert.InDelta(t, want[i], r[0], 1e-9, "bar %d", i)
	}
}

func TestMACD_FlatSeriesStaysNeutral(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	src, dates := sourceOf("AAPL", closes)
	p, err := NewMACD(src, logger.NewNop(), nil)
	require.NoError(t, err)

	matrix, err := p.ComputeScores(dates, []string{"AAPL"})
	require.NoError(t, err)

	for _, date := range dates {
		r, ok := matrix.Row(date)
		require.True(t, ok)
		assert.Zero(t, r[0])
	}
}

func TestBuildMatrix_MissingDataStaysNeutral(t *testing.T) {
	src, dates := sourceOf("AAPL", []float64{100, 100, 110})
	// Calendar extends one day past the ticker's history.
	calendar := append(append([]time.Time{}, dates...), dates[2].AddDate(0, 0, 1))

	p, err := NewMomentum(src, logger.NewNop(), Params{"window": 2})
	require.NoError(t, err)
	matrix, err := p.ComputeScores(calendar, []string{"AAPL", "GHOST"})
	require.NoError(t, err)

	r, ok := matrix.Row(calendar[3])
	require.True(t, ok)
	assert.Zero(t, r[0], "day the ticker did not trade stays neutral")

	r, ok = matrix.Row(calendar[2])
	require.True(t, ok)
	assert.Zero(t, r[1], "unknown ticker stays neutral")
	assert.InDelta(t, 0.10, r[0], 1e-9)
}

package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// fakeSource is an in-memory BarSource for tests.
type fakeSource struct {
	bars map[string]map[time.Time]*contracts.Bar
}

func newFakeSource() *fakeSource {
	return &fakeSource{bars: make(map[string]map[time.Time]*contracts.Bar)}
}

func (f *fakeSource) add(ticker string, date time.Time, open, high, low, closePrice float64) {
	if f.bars[ticker] == nil {
		f.bars[ticker] = make(map[time.Time]*contracts.Bar)
	}
	f.bars[ticker][date] = &contracts.Bar{
		Ticker: ticker, Date: date,
		Open: open, High: high, Low: low, Close: closePrice, Volume: 1000,
	}
}

func (f *fakeSource) Bar(ticker string, date time.Time) (*contracts.Bar, bool) {
	bar, ok := f.bars[ticker][date]
	return bar, ok
}

func (f *fakeSource) History(ticker string) (*contracts.Series, bool) { return nil, false }

func (f *fakeSource) Tickers() []string {
	var out []string
	for t := range f.bars {
		out = append(out, t)
	}
	return out
}

func d(day int) time.Time {
	return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
}

func buy(ticker string, qty int, price, commission float64) *contracts.Fill {
	return &contracts.Fill{Side: contracts.SideBuy, Ticker: ticker, Qty: qty, Price: price, Commission: commission}
}

func sell(ticker string, qty int, price, commission float64) *contracts.Fill {
	return &contracts.Fill{Side: contracts.SideSell, Ticker: ticker, Qty: qty, Price: price, Commission: commission}
}

func TestLedger_MarkToMarketInvariant(t *testing.T) {
	source := newFakeSource()
	source.add("aapl", d(1), 100, 101, 99, 100)
	source.add("msft", d(1), 200, 201, 199, 200)

	ledger := NewLedger(source, 10000, logger.NewNop())
	ledger.ApplyFill(buy("aapl", 10, 100, 0), d(1))
	ledger.ApplyFill(buy("msft", 5, 200, 0), d(1))

	total := ledger.MarkToMarket(d(1))

	// cash + sum(shares * close) must equal total value
	expected := ledger.Cash() + 10*100.0 + 5*200.0
	assert.InDelta(t, expected, total, 1e-9)
	assert.InDelta(t, 10000.0, total, 1e-9) // flat market, no commission
}

func TestLedger_MarkToMarketSkipsMissingClose(t *testing.T) {
	source := newFakeSource()
	source.add("aapl", d(1), 100, 101, 99, 100)
	// no aapl bar on d(2): delisted/halted

	ledger := NewLedger(source, 1000, logger.NewNop())
	ledger.ApplyFill(buy("aapl", 5, 100, 0), d(1))

	total := ledger.MarkToMarket(d(2))

	// Position value frozen by omission: only cash counts
	assert.InDelta(t, ledger.Cash(), total, 1e-9)
	assert.InDelta(t, 500.0, total, 1e-9)
}

func TestLedger_BuyAveragesCostBasis(t *testing.T) {
	source := newFakeSource()
	ledger := NewLedger(source, 100000, logger.NewNop())

	ledger.ApplyFill(buy("aapl", 10, 100, 1), d(1))
	ledger.ApplyFill(buy("aapl", 30, 120, 1), d(2))

	pos, ok := ledger.Position("aapl")
	require.True(t, ok)
	assert.Equal(t, 40, pos.Shares)
	// (10*100 + 30*120) / 40 = 115
	assert.InDelta(t, 115.0, pos.AvgCost, 1e-9)
	assert.Equal(t, d(2), pos.EntryDate)
	// cash: 100000 - 1000 - 3600 - 2 commission
	assert.InDelta(t, 95398.0, ledger.Cash(), 1e-9)
}

func TestLedger_SellAllClosesRoundTrip(t *testing.T) {
	source := newFakeSource()
	ledger := NewLedger(source, 100000, logger.NewNop())

	ledger.ApplyFill(buy("aapl", 10, 100, 1), d(1))
	ledger.ApplyFill(buy("aapl", 30, 120, 1), d(2))
	ledger.ApplyFill(sell("aapl", 40, 130, 1), d(5))

	// realized pnl = (130 - 115) * 40 = 600
	assert.InDelta(t, 600.0, ledger.RealizedPnL(), 1e-9)

	history := ledger.TradeHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "aapl", history[0].Ticker)
	assert.InDelta(t, 600.0, history[0].PnL, 1e-9)
	assert.Equal(t, d(2), history[0].EntryDate)
	assert.Equal(t, d(5), history[0].ExitDate)

	// Position reset
	pos, ok := ledger.Position("aapl")
	require.True(t, ok)
	assert.Equal(t, 0, pos.Shares)
	assert.Equal(t, 0.0, pos.AvgCost)
	assert.True(t, pos.EntryDate.IsZero())
	assert.Equal(t, 0, ledger.PositionCount())
}

func TestLedger_PartialSellKeepsPositionOpen(t *testing.T) {
	source := newFakeSource()
	ledger := NewLedger(source, 100000, logger.NewNop())

	ledger.ApplyFill(buy("aapl", 10, 100, 0), d(1))
	ledger.ApplyFill(sell("aapl", 4, 110, 0), d(3))

	assert.InDelta(t, 40.0, ledger.RealizedPnL(), 1e-9) // (110-100)*4
	assert.Empty(t, ledger.TradeHistory())              // not a round-trip yet

	pos, _ := ledger.Position("aapl")
	assert.Equal(t, 6, pos.Shares)
	assert.InDelta(t, 100.0, pos.AvgCost, 1e-9) // basis unchanged by sells
	assert.Equal(t, d(1), pos.EntryDate)
}

func TestLedger_CommissionDebitedOnBothSides(t *testing.T) {
	source := newFakeSource()
	ledger := NewLedger(source, 1000, logger.NewNop())

	ledger.ApplyFill(buy("aapl", 1, 100, 1.5), d(1))
	assert.InDelta(t, 898.5, ledger.Cash(), 1e-9)

	ledger.ApplyFill(sell("aapl", 1, 100, 1.5), d(2))
	assert.InDelta(t, 997.0, ledger.Cash(), 1e-9)
}

func TestLedger_SharesNeverNegative(t *testing.T) {
	source := newFakeSource()
	ledger := NewLedger(source, 1000, logger.NewNop())

	ledger.ApplyFill(buy("aapl", 3, 10, 0), d(1))
	ledger.ApplyFill(sell("aapl", 3, 11, 0), d(2))

	assert.Equal(t, 0, ledger.SharesHeld("aapl"))
	assert.GreaterOrEqual(t, ledger.SharesHeld("aapl"), 0)
}

package portfolio

import (
	"sort"
	"time"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// Position is the per-ticker holding state. A position is created
// implicitly at zero shares and reset when shares return to exactly
// zero; AvgCost is meaningless (held at 0) while flat.
type Position struct {
	Ticker    string
	Shares    int
	AvgCost   float64
	EntryDate time.Time // zero value while flat
}

// RoundTrip records one completed entry/exit pair: the position went
// from zero shares to non-zero and back to exactly zero.
type RoundTrip struct {
	Ticker    string
	PnL       float64
	EntryDate time.Time
	ExitDate  time.Time
}

// Ledger owns cash, positions, realized P&L and the trade history for
// exactly one simulation run. It is never shared across runs and must
// not be mutated concurrently
// ⭐ SSOT: 포트폴리오 상태 변경은 이 타입을 통해서만
type Ledger struct {
	source contracts.BarSource
	logger *logger.Logger

	initialCash float64
	cash        float64
	positions   map[string]*Position
	totalValue  float64
	realizedPnL float64
	history     []RoundTrip
}

// NewLedger creates a ledger with the given starting cash.
func NewLedger(source contracts.BarSource, initialCash float64, log *logger.Logger) *Ledger {
	return &Ledger{
		source:      source,
		logger:      log,
		initialCash: initialCash,
		cash:        initialCash,
		totalValue:  initialCash,
		positions:   make(map[string]*Position),
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// InitialCash returns the starting cash balance.
func (l *Ledger) InitialCash() float64 {
	return l.initialCash
}

// TotalValue returns the value computed by the last MarkToMarket call.
func (l *Ledger) TotalValue() float64 {
	return l.totalValue
}

// RealizedPnL returns cumulative realized profit and loss.
func (l *Ledger) RealizedPnL() float64 {
	return l.realizedPnL
}

// TradeHistory returns all completed round-trips so far.
func (l *Ledger) TradeHistory() []RoundTrip {
	return l.history
}

// SharesHeld returns the share count for a ticker, zero when flat.
func (l *Ledger) SharesHeld(ticker string) int {
	if pos, ok := l.positions[ticker]; ok {
		return pos.Shares
	}
	return 0
}

// Position returns a copy of the position for a ticker.
func (l *Ledger) Position(ticker string) (Position, bool) {
	pos, ok := l.positions[ticker]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// HeldTickers returns tickers with a non-zero position, sorted for
// deterministic iteration.
func (l *Ledger) HeldTickers() []string {
	tickers := make([]string, 0, len(l.positions))
	for ticker, pos := range l.positions {
		if pos.Shares > 0 {
			tickers = append(tickers, ticker)
		}
	}
	sort.Strings(tickers)
	return tickers
}

// PositionCount returns the number of non-zero positions.
func (l *Ledger) PositionCount() int {
	count := 0
	for _, pos := range l.positions {
		if pos.Shares > 0 {
			count++
		}
	}
	return count
}

// MarkToMarket revalues the portfolio at the day's closes and returns
// the total value. A held ticker with no close for the date (halted,
// delisted) is skipped — its last-known value is frozen by omission,
// an accepted approximation rather than an error.
func (l *Ledger) MarkToMarket(date time.Time) float64 {
	marketValue := 0.0
	for _, ticker := range l.HeldTickers() {
		pos := l.positions[ticker]
		bar, ok := l.source.Bar(ticker, date)
		if !ok {
			continue
		}
		marketValue += float64(pos.Shares) * bar.Close
	}

	l.totalValue = l.cash + marketValue
	return l.totalValue
}

// ApplyFill mutates the ledger for one executed fill. Commission is
// debited from cash regardless of side.
func (l *Ledger) ApplyFill(fill *contracts.Fill, date time.Time) {
	pos, ok := l.positions[fill.Ticker]
	if !ok {
		pos = &Position{Ticker: fill.Ticker}
		l.positions[fill.Ticker] = pos
	}

	tradeValue := fill.Value()

	switch fill.Side {
	case contracts.SideBuy:
		// Weighted average cost basis across the old and new lots.
		oldValue := float64(pos.Shares) * pos.AvgCost
		newShares := pos.Shares + fill.Qty
		if newShares > 0 {
			pos.AvgCost = (oldValue + tradeValue) / float64(newShares)
		} else {
			pos.AvgCost = 0
		}
		pos.Shares = newShares
		pos.EntryDate = date
		l.cash -= tradeValue

	case contracts.SideSell:
		pnl := (fill.Price - pos.AvgCost) * float64(fill.Qty)
		l.realizedPnL += pnl

		l.cash += tradeValue
		pos.Shares -= fill.Qty

		// Round-trip closes only when the position hits exactly zero.
		if pos.Shares == 0 {
			l.history = append(l.history, RoundTrip{
				Ticker:    fill.Ticker,
				PnL:       pnl,
				EntryDate: pos.EntryDate,
				ExitDate:  date,
			})
			pos.AvgCost = 0
			pos.EntryDate = time.Time{}
		}
	}

	l.cash -= fill.Commission
}

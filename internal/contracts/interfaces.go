package contracts

import "time"

// BarSource provides keyed access to daily bars and ticker histories
// ⭐ SSOT: 시장 데이터 조회 인터페이스
type BarSource interface {
	// Bar returns the bar for a ticker on a date, or ok=false when no
	// data exists for that day (holiday, delisting, missing file).
	Bar(ticker string, date time.Time) (*Bar, bool)

	// History returns the full loaded history for a ticker.
	History(ticker string) (*Series, bool)

	// Tickers returns every ticker the source has data for.
	Tickers() []string
}

// SignalProvider produces a raw score matrix for the whole simulation
// period in one pass. Implementations must be pure functions of history
// up to and including each date — no forward peeking.
// ⭐ SSOT: 시그널 전략 플러그인 인터페이스
type SignalProvider interface {
	// Name identifies the provider in logs and audit breakdowns.
	Name() string

	// ComputeScores fills a matrix aligned to the calendar and universe.
	// Positive = bullish, exactly -1 = exit trigger, 0 = neutral.
	ComputeScores(calendar []time.Time, universe []string) (*ScoreMatrix, error)
}

// TradeAuditor receives the per-trade audit stream. Implementations
// persist it (CSV, stdout); a nil auditor is allowed everywhere.
type TradeAuditor interface {
	LogTrade(date time.Time, ticker string, side Side, qty int, price float64, reason string, score float64, breakdown map[string]float64)
}

// PortfolioAuditor receives the end-of-day portfolio state stream.
type PortfolioAuditor interface {
	LogPortfolioState(date time.Time, totalValue, cash, realizedPnL float64, positionCount int)
}

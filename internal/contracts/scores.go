package contracts

import (
	"sort"
	"time"
)

// ScoreMatrix holds one provider's raw scores aligned to the simulation
// calendar and ticker universe. Missing entries are 0 (neutral).
// ⭐ SSOT: 시그널 사전계산 결과는 이 타입으로만 전달
type ScoreMatrix struct {
	Provider string
	Dates    []time.Time
	Tickers  []string

	// values[dateIdx][tickerIdx]
	values  [][]float64
	dateIdx map[time.Time]int
}

// NewScoreMatrix allocates a zero-filled matrix for the given calendar
// and universe.
func NewScoreMatrix(provider string, dates []time.Time, tickers []string) *ScoreMatrix {
	values := make([][]float64, len(dates))
	for i := range values {
		values[i] = make([]float64, len(tickers))
	}
	idx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		idx[d] = i
	}
	return &ScoreMatrix{
		Provider: provider,
		Dates:    dates,
		Tickers:  tickers,
		values:   values,
		dateIdx:  idx,
	}
}

// Set writes a raw score for (date index, ticker index).
func (m *ScoreMatrix) Set(dateIdx, tickerIdx int, score float64) {
	m.values[dateIdx][tickerIdx] = score
}

// Row returns the raw scores for every ticker on a date, in universe
// order. ok is false when the date is outside the calendar.
func (m *ScoreMatrix) Row(date time.Time) ([]float64, bool) {
	i, ok := m.dateIdx[date]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// CompositeScores is the cross-provider aggregation result for one day.
type CompositeScores struct {
	Date time.Time

	// Total holds the summed normalized score per ticker. Only tickers
	// with at least one positive provider contribution appear.
	Total map[string]float64

	// Breakdown holds the per-provider normalized contribution per
	// ticker, retained for the audit stream.
	Breakdown map[string]map[string]float64
}

// TopN returns the long targets for the day: the n best tickers by
// composite score, minus any ticker in the excluded set. Excluded
// tickers are removed after the cut, not backfilled — a ticker sold by
// a stop-loss the same day gives up its slot entirely.
func (c *CompositeScores) TopN(n int, excluded map[string]bool) []string {
	ranked := make([]string, 0, len(c.Total))
	for ticker := range c.Total {
		ranked = append(ranked, ticker)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := c.Total[ranked[i]], c.Total[ranked[j]]
		if si != sj {
			return si > sj
		}
		return ranked[i] < ranked[j] // deterministic tie-break
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}

	targets := make([]string, 0, len(ranked))
	for _, ticker := range ranked {
		if excluded[ticker] {
			continue
		}
		targets = append(targets, ticker)
	}
	return targets
}

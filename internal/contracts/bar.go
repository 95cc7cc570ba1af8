package contracts

import "time"

// Bar represents one daily OHLCV bar for a single ticker
// ⭐ SSOT: 시장 데이터 전달은 이 타입으로만
type Bar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// TypicalPrice returns the mean of high, low and close.
// Used as the simulated execution price for next-day fills.
func (b *Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3.0
}

// Series holds the full daily history for one ticker in column form,
// ordered by date ascending. Indicator providers consume the columns
// directly, so all slices share the same length and ordering.
type Series struct {
	Ticker string
	Dates  []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64

	index map[time.Time]int
}

// NewSeries builds a Series and its date index from aligned columns.
func NewSeries(ticker string, dates []time.Time, open, high, low, closes, volume []float64) *Series {
	idx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		idx[d] = i
	}
	return &Series{
		Ticker: ticker,
		Dates:  dates,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closes,
		Volume: volume,
		index:  idx,
	}
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.Dates)
}

// At returns the bar for a specific date.
func (s *Series) At(date time.Time) (*Bar, bool) {
	i, ok := s.index[date]
	if !ok {
		return nil, false
	}
	return &Bar{
		Ticker: s.Ticker,
		Date:   s.Dates[i],
		Open:   s.Open[i],
		High:   s.High[i],
		Low:    s.Low[i],
		Close:  s.Close[i],
		Volume: s.Volume[i],
	}, true
}

// IndexOf returns the positional index of a date in the series.
func (s *Series) IndexOf(date time.Time) (int, bool) {
	i, ok := s.index[date]
	return i, ok
}

// Package strategy implements the concrete signal providers. Each
// provider turns one indicator family into a raw score series per
// ticker: positive = bullish (magnitude = strength), exactly -1 =
// sell/exit trigger, 0 = neutral. Normalization across providers is
// the aggregator's job, not ours.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// Params carries a provider's tuning knobs as loaded from config.
// Unknown keys are ignored so one scenario file can sweep several
// providers without per-provider schemas.
type Params map[string]float64

// Int reads an integer parameter with a default.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}
	return def
}

// Float reads a float parameter with a default.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// New builds a signal provider by name. An unknown name is a
// configuration error and aborts setup before any simulation runs
// ⭐ SSOT: 프로바이더 생성은 이 팩토리로만
func New(name string, params Params, source contracts.BarSource, log *logger.Logger) (contracts.SignalProvider, error) {
	switch strings.ToLower(name) {
	case "momentum":
		return NewMomentum(source, log, params)
	case "rsi":
		return NewRSI(source, log, params)
	case "macd":
		return NewMACD(source, log, params)
	case "bollinger":
		return NewBollinger(source, log, params)
	case "zscore":
		return NewZScore(source, log, params)
	case "obv":
		return NewOBV(source, log, params)
	default:
		return nil, fmt.Errorf("unknown signal provider %q", name)
	}
}

// rawScoreFunc computes a raw score per bar, aligned index-for-index
// with the ticker's own series.
type rawScoreFunc func(series *contracts.Series) []float64

// buildMatrix runs a per-ticker score function over the universe and
// projects the results onto the shared trading-day calendar. Tickers
// with no history and calendar days a ticker did not trade stay at 0
// (neutral).
func buildMatrix(provider string, source contracts.BarSource, calendar []time.Time, universe []string, raw rawScoreFunc) *contracts.ScoreMatrix {
	matrix := contracts.NewScoreMatrix(provider, calendar, universe)
	for ti, ticker := range universe {
		series, ok := source.History(ticker)
		if !ok || series.Len() == 0 {
			continue
		}
		scores := raw(series)
		for di, date := range calendar {
			si, ok := series.IndexOf(date)
			if !ok || si >= len(scores) {
				continue
			}
			matrix.Set(di, ti, scores[si])
		}
	}
	return matrix
}

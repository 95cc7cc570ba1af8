package strategy

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// RSI scores oversold conditions: the deeper the RSI sits below the
// oversold threshold, the stronger the buy score, scaled to (0, 1].
// Overbought readings emit the exit sentinel.
type RSI struct {
	source     contracts.BarSource
	logger     *logger.Logger
	period     int
	oversold   float64
	overbought float64
}

// NewRSI creates an RSI provider. Defaults: period 14, oversold 30,
// overbought 70.
func NewRSI(source contracts.BarSource, log *logger.Logger, params Params) (*RSI, error) {
	period := params.Int("period", 14)
	oversold := params.Float("oversold", 30)
	overbought := params.Float("overbought", 70)
	if period <= 0 {
		return nil, fmt.Errorf("rsi: period must be positive, got %d", period)
	}
	if oversold <= 0 || overbought <= oversold {
		return nil, fmt.Errorf("rsi: need 0 < oversold < overbought, got %.1f / %.1f", oversold, overbought)
	}
	return &RSI{source: source, logger: log, period: period, oversold: oversold, overbought: overbought}, nil
}

// Name implements contracts.SignalProvider.
func (r *RSI) Name() string { return "rsi" }

// ComputeScores implements contracts.SignalProvider.
func (r *RSI) ComputeScores(calendar []time.Time, universe []string) (*contracts.ScoreMatrix, error) {
	return buildMatrix(r.Name(), r.source, calendar, universe, func(series *contracts.Series) []float64 {
		scores := make([]float64, series.Len())
		if series.Len() <= r.period {
			return scores
		}
		rsi := talib.Rsi(series.Close, r.period)
		// Warmup bars are zero-filled by talib; treating them as
		// oversold would fabricate max-strength signals, so skip.
		for i := r.period; i < len(rsi); i++ {
			switch {
			case rsi[i] < r.oversold:
				scores[i] = (r.oversold - rsi[i]) / r.oversold
			case rsi[i] > r.overbought:
				scores[i] = -1
			}
		}
		return scores
	}), nil
}

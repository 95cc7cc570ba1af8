package strategy

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// Bollinger scores upper-band breakouts: when the close crosses above
// the upper band, the score is the close's Z-score against the middle
// band. A cross back below the middle band emits the exit sentinel.
type Bollinger struct {
	source contracts.BarSource
	logger *logger.Logger
	period int
	numDev float64
}

// NewBollinger creates a Bollinger Bands provider. Defaults: period
// 20, 2.0 standard deviations.
func NewBollinger(source contracts.BarSource, log *logger.Logger, params Params) (*Bollinger, error) {
	period := params.Int("period", 20)
	numDev := params.Float("stddev", 2.0)
	if period <= 1 {
		return nil, fmt.Errorf("bollinger: period must be at least 2, got %d", period)
	}
	if numDev <= 0 {
		return nil, fmt.Errorf("bollinger: stddev must be positive, got %.2f", numDev)
	}
	return &Bollinger{source: source, logger: log, period: period, numDev: numDev}, nil
}

// Name implements contracts.SignalProvider.
func (b *Bollinger) Name() string { return "bollinger" }

// ComputeScores implements contracts.SignalProvider.
func (b *Bollinger) ComputeScores(calendar []time.Time, universe []string) (*contracts.ScoreMatrix, error) {
	return buildMatrix(b.Name(), b.source, calendar, universe, func(series *contracts.Series) []float64 {
		scores := make([]float64, series.Len())
		if series.Len() <= b.period {
			return scores
		}
		upper, middle, _ := talib.BBands(series.Close, b.period, b.numDev, b.numDev, talib.SMA)
		stdDev := talib.StdDev(series.Close, b.period, 1.0)
		closes := series.Close
		for i := b.period; i < len(closes); i++ {
			crossedUp := closes[i] > upper[i] && closes[i-1] <= upper[i-1]
			crossedDown := closes[i] < middle[i] && closes[i-1] >= middle[i-1]
			switch {
			case crossedUp && stdDev[i] > 0:
				scores[i] = (closes[i] - middle[i]) / stdDev[i]
			case crossedDown:
				scores[i] = -1
			}
		}
		return scores
	}), nil
}

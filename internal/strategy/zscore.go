package strategy

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// ZScore is a mean-reversion provider: a close far enough below its
// rolling mean (Z-score under the buy threshold) scores the negated
// Z-score, so deeper oversold means a stronger buy. Reverting back
// above the sell threshold emits the exit sentinel.
type ZScore struct {
	source        contracts.BarSource
	logger        *logger.Logger
	lookback      int
	buyThreshold  float64
	sellThreshold float64
}

// NewZScore creates a Z-score reversion provider. Defaults: lookback
// 20, buy threshold -2.0, sell threshold 0.0.
func NewZScore(source contracts.BarSource, log *logger.Logger, params Params) (*ZScore, error) {
	lookback := params.Int("lookback", 20)
	buyThreshold := params.Float("buy_threshold", -2.0)
	sellThreshold := params.Float("sell_threshold", 0.0)
	if lookback <= 1 {
		return nil, fmt.Errorf("zscore: lookback must be at least 2, got %d", lookback)
	}
	if buyThreshold >= sellThreshold {
		return nil, fmt.Errorf("zscore: buy threshold %.2f must be below sell threshold %.2f", buyThreshold, sellThreshold)
	}
	return &ZScore{source: source, logger: log, lookback: lookback, buyThreshold: buyThreshold, sellThreshold: sellThreshold}, nil
}

// Name implements contracts.SignalProvider.
func (z *ZScore) Name() string { return "zscore" }

// ComputeScores implements contracts.SignalProvider.
func (z *ZScore) ComputeScores(calendar []time.Time, universe []string) (*contracts.ScoreMatrix, error) {
	return buildMatrix(z.Name(), z.source, calendar, universe, func(series *contracts.Series) []float64 {
		scores := make([]float64, series.Len())
		if series.Len() < z.lookback {
			return scores
		}
		sma := talib.Sma(series.Close, z.lookback)
		stdDev := talib.StdDev(series.Close, z.lookback, 1.0)

		zs := make([]float64, series.Len())
		for i := z.lookback - 1; i < series.Len(); i++ {
			if stdDev[i] > 0 {
				zs[i] = (series.Close[i] - sma[i]) / stdDev[i]
			}
		}

		for i := z.lookback - 1; i < series.Len(); i++ {
			if zs[i] < z.buyThreshold {
				scores[i] = -zs[i]
				continue
			}
			// Exit only on the crossing bar, not while parked above.
			if i >= z.lookback && zs[i] > z.sellThreshold && zs[i-1] <= z.sellThreshold {
				scores[i] = -1
			}
		}
		return scores
	}), nil
}

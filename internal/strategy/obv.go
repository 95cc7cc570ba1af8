package strategy

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// OBV scores positive volume momentum: when On-Balance Volume crosses
// above its own moving average, the score is OBV's Z-score against
// that average. A cross back below emits the exit sentinel.
type OBV struct {
	source    contracts.BarSource
	logger    *logger.Logger
	smaPeriod int
}

// NewOBV creates an OBV crossover provider. Default SMA period: 20.
func NewOBV(source contracts.BarSource, log *logger.Logger, params Params) (*OBV, error) {
	smaPeriod := params.Int("sma_period", 20)
	if smaPeriod <= 1 {
		return nil, fmt.Errorf("obv: sma_period must be at least 2, got %d", smaPeriod)
	}
	return &OBV{source: source, logger: log, smaPeriod: smaPeriod}, nil
}

// Name implements contracts.SignalProvider.
func (o *OBV) Name() string { return "obv" }

// ComputeScores implements contracts.SignalProvider.
func (o *OBV) ComputeScores(calendar []time.Time, universe []string) (*contracts.ScoreMatrix, error) {
	return buildMatrix(o.Name(), o.source, calendar, universe, func(series *contracts.Series) []float64 {
		scores := make([]float64, series.Len())
		if series.Len() <= o.smaPeriod {
			return scores
		}
		obv := talib.Obv(series.Close, series.Volume)
		obvSma := talib.Sma(obv, o.smaPeriod)
		obvStd := talib.StdDev(obv, o.smaPeriod, 1.0)
		for i := o.smaPeriod; i < len(obv); i++ {
			crossedUp := obv[i] > obvSma[i] && obv[i-1] <= obvSma[i-1]
			crossedDown := obv[i] < obvSma[i] && obv[i-1] >= obvSma[i-1]
			switch {
			case crossedUp && obvStd[i] > 0:
				scores[i] = (obv[i] - obvSma[i]) / obvStd[i]
			case crossedDown:
				scores[i] = -1
			}
		}
		return scores
	}), nil
}

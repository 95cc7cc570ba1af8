package strategy

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// Momentum scores the percentage price change over a lookback window.
// Positive momentum scores its own gain, negative momentum is an exit.
type Momentum struct {
	source contracts.BarSource
	logger *logger.Logger
	window int
}

// NewMomentum creates a momentum provider. Default window: 5 days.
func NewMomentum(source contracts.BarSource, log *logger.Logger, params Params) (*Momentum, error) {
	window := params.Int("window", 5)
	if window <= 0 {
		return nil, fmt.Errorf("momentum: window must be positive, got %d", window)
	}
	return &Momentum{source: source, logger: log, window: window}, nil
}

// Name implements contracts.SignalProvider.
func (m *Momentum) Name() string { return "momentum" }

// ComputeScores implements contracts.SignalProvider.
func (m *Momentum) ComputeScores(calendar []time.Time, universe []string) (*contracts.ScoreMatrix, error) {
	return buildMatrix(m.Name(), m.source, calendar, universe, func(series *contracts.Series) []float64 {
		scores := make([]float64, series.Len())
		if series.Len() <= m.window {
			return scores
		}
		// Roc returns percent; the score is the plain fractional gain.
		roc := talib.Roc(series.Close, m.window)
		for i := m.window; i < len(roc); i++ {
			switch {
			case roc[i] > 0:
				scores[i] = roc[i] / 100.0
			case roc[i] < 0:
				scores[i] = -1
			}
		}
		return scores
	}), nil
}

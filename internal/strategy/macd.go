package strategy

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// MACD scores bullish line crossovers: when the MACD line crosses
// above its signal line, the score is the spread between the two at
// the crossover bar. A cross back below emits the exit sentinel.
type MACD struct {
	source contracts.BarSource
	logger *logger.Logger
	fast   int
	slow   int
	signal int
}

// NewMACD creates a MACD provider. Defaults: 12/26/9.
func NewMACD(source contracts.BarSource, log *logger.Logger, params Params) (*MACD, error) {
	fast := params.Int("fast", 12)
	slow := params.Int("slow", 26)
	signal := params.Int("signal", 9)
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, fmt.Errorf("macd: periods must be positive, got %d/%d/%d", fast, slow, signal)
	}
	if fast >= slow {
		return nil, fmt.Errorf("macd: fast period %d must be shorter than slow period %d", fast, slow)
	}
	return &MACD{source: source, logger: log, fast: fast, slow: slow, signal: signal}, nil
}

// Name implements contracts.SignalProvider.
func (m *MACD) Name() string { return "macd" }

// ComputeScores implements contracts.SignalProvider.
func (m *MACD) ComputeScores(calendar []time.Time, universe []string) (*contracts.ScoreMatrix, error) {
	return buildMatrix(m.Name(), m.source, calendar, universe, func(series *contracts.Series) []float64 {
		scores := make([]float64, series.Len())
		// Crossover detection needs a valid previous bar as well.
		warmup := m.slow + m.signal - 1
		if series.Len() <= warmup {
			return scores
		}
		macdLine, signalLine, _ := talib.Macd(series.Close, m.fast, m.slow, m.signal)
		for i := warmup; i < len(macdLine); i++ {
			crossedUp := macdLine[i] > signalLine[i] && macdLine[i-1] <= signalLine[i-1]
			crossedDown := macdLine[i] < signalLine[i] && macdLine[i-1] >= signalLine[i-1]
			switch {
			case crossedUp:
				scores[i] = macdLine[i] - signalLine[i]
			case crossedDown:
				scores[i] = -1
			}
		}
		return scores
	}), nil
}

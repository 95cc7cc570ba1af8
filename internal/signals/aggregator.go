package signals

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

// Degenerate rank spreads below this are treated as "all tied".
const minRankStdDev = 1e-8

// Aggregator combines raw provider scores into one composite score per
// ticker per day. Raw magnitudes are not comparable across indicator
// families (a MACD spread and an RSI distance are different units), so
// each provider's candidates are rank-then-Z-scored onto a common,
// outlier-resistant scale before summation
// ⭐ SSOT: 시그널 정규화/합산은 여기서만
type Aggregator struct {
	logger *logger.Logger
}

// NewAggregator creates a new aggregator.
func NewAggregator(log *logger.Logger) *Aggregator {
	return &Aggregator{logger: log}
}

// Aggregate normalizes and sums every provider's scores for one day.
// Per provider: tickers with raw score > 0 are dense-ranked descending,
// ranks are normalized (see normalizeRanks), and normalized scores ≤ 0
// are discarded. The per-provider breakdown is retained for the audit
// stream.
func (a *Aggregator) Aggregate(date time.Time, matrices []*contracts.ScoreMatrix) *contracts.CompositeScores {
	composite := &contracts.CompositeScores{
		Date:      date,
		Total:     make(map[string]float64),
		Breakdown: make(map[string]map[string]float64),
	}

	for _, matrix := range matrices {
		row, ok := matrix.Row(date)
		if !ok {
			continue
		}

		// Candidates: strictly positive raw scores only.
		var candidates []string
		rawScores := make(map[string]float64)
		for i, ticker := range matrix.Tickers {
			if row[i] > 0 {
				candidates = append(candidates, ticker)
				rawScores[ticker] = row[i]
			}
		}
		if len(candidates) == 0 {
			continue
		}

		ranks := denseRankDesc(candidates, rawScores)
		normalized := normalizeRanks(candidates, ranks)

		for ticker, score := range normalized {
			if score <= 0 {
				continue
			}
			composite.Total[ticker] += score
			if composite.Breakdown[ticker] == nil {
				composite.Breakdown[ticker] = make(map[string]float64)
			}
			composite.Breakdown[ticker][matrix.Provider] = score
		}
	}

	return composite
}

// denseRankDesc assigns dense descending ranks: the best score gets
// rank 1, ties share a rank and the next distinct score gets the
// immediate successor (no gaps).
func denseRankDesc(candidates []string, scores map[string]float64) map[string]float64 {
	distinct := make([]float64, 0, len(candidates))
	seen := make(map[float64]bool)
	for _, ticker := range candidates {
		s := scores[ticker]
		if !seen[s] {
			seen[s] = true
			distinct = append(distinct, s)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(distinct)))

	rankOf := make(map[float64]float64, len(distinct))
	for i, s := range distinct {
		rankOf[s] = float64(i + 1)
	}

	ranks := make(map[string]float64, len(candidates))
	for _, ticker := range candidates {
		ranks[ticker] = rankOf[scores[ticker]]
	}
	return ranks
}

// normalizeRanks maps ranks onto the composite scale. With two or
// fewer candidates ranking carries no statistical meaning, so all get
// 1.0. Otherwise the rank Z-score (mean − rank) / std flips sign so
// the best rank scores highest; a degenerate spread (all tied) also
// collapses to 1.0 rather than NaN.
func normalizeRanks(candidates []string, ranks map[string]float64) map[string]float64 {
	normalized := make(map[string]float64, len(candidates))

	if len(candidates) <= 2 {
		for _, ticker := range candidates {
			normalized[ticker] = 1.0
		}
		return normalized
	}

	mean := 0.0
	for _, ticker := range candidates {
		mean += ranks[ticker]
	}
	mean /= float64(len(candidates))

	variance := 0.0
	for _, ticker := range candidates {
		diff := ranks[ticker] - mean
		variance += diff * diff
	}
	variance /= float64(len(candidates))
	std := math.Sqrt(variance)

	if std < minRankStdDev {
		for _, ticker := range candidates {
			normalized[ticker] = 1.0
		}
		return normalized
	}

	for _, ticker := range candidates {
		normalized[ticker] = (mean - ranks[ticker]) / std
	}
	return normalized
}

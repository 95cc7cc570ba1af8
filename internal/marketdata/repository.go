package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/equisim/internal/contracts"
)

// Repository loads daily bars from PostgreSQL into the same in-memory
// form the CSV store uses, so simulations read prices identically
// regardless of where the history came from
// ⭐ SSOT: DB 가격 데이터 조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new price repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadSource reads the full history for every requested ticker and
// returns an in-memory BarSource. The per-day simulation loop never
// touches the database.
func (r *Repository) LoadSource(ctx context.Context, tickers []string, from, to time.Time) (contracts.BarSource, error) {
	series := make(map[string]*contracts.Series, len(tickers))

	for _, ticker := range tickers {
		ticker = strings.ToLower(ticker)
		s, err := r.loadSeries(ctx, ticker, from, to)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", ticker, err)
		}
		if s != nil {
			series[ticker] = s
		}
	}

	return &memorySource{series: series}, nil
}

// loadSeries reads one ticker's bars ordered by date ascending.
func (r *Repository) loadSeries(ctx context.Context, ticker string, from, to time.Time) (*contracts.Series, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM data.daily_prices
		WHERE ticker = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		dates                           []time.Time
		open, high, low, closes, volume []float64
	)

	for rows.Next() {
		var (
			d          time.Time
			o, h, l, c float64
			v          float64
		)
		if err := rows.Scan(&d, &o, &h, &l, &c, &v); err != nil {
			return nil, err
		}
		dates = append(dates, d)
		open = append(open, o)
		high = append(high, h)
		low = append(low, l)
		closes = append(closes, c)
		volume = append(volume, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dates) == 0 {
		return nil, nil
	}

	return contracts.NewSeries(ticker, dates, open, high, low, closes, volume), nil
}

// memorySource is the BarSource view over repository-loaded series.
type memorySource struct {
	series map[string]*contracts.Series
}

func (m *memorySource) Bar(ticker string, date time.Time) (*contracts.Bar, bool) {
	s, ok := m.series[strings.ToLower(ticker)]
	if !ok {
		return nil, false
	}
	return s.At(date)
}

func (m *memorySource) History(ticker string) (*contracts.Series, bool) {
	s, ok := m.series[strings.ToLower(ticker)]
	return s, ok
}

func (m *memorySource) Tickers() []string {
	tickers := make([]string, 0, len(m.series))
	for t := range m.series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/pkg/logger"
)

var csvFilePattern = regexp.MustCompile(`^daily_(\w+)\.csv$`)

// Store loads daily bars from per-ticker CSV files and serves them
// from memory for the lifetime of a simulation
// ⭐ SSOT: CSV 시장 데이터 로딩은 여기서만
type Store struct {
	dir    string
	logger *logger.Logger

	series map[string]*contracts.Series
}

// NewStore loads history for the given tickers from dir. With an empty
// ticker list it discovers every daily_<ticker>.csv in the directory.
// A missing file for a requested ticker is skipped with a warning, not
// an error; simulation setup fails later only if the benchmark itself
// has no data.
func NewStore(dir string, tickers []string, log *logger.Logger) (*Store, error) {
	s := &Store{
		dir:    dir,
		logger: log,
		series: make(map[string]*contracts.Series),
	}

	if len(tickers) == 0 {
		discovered, err := s.discoverTickers()
		if err != nil {
			return nil, err
		}
		tickers = discovered
	}

	for _, ticker := range tickers {
		ticker = strings.ToLower(ticker)
		path, ok := s.findFile(ticker)
		if !ok {
			s.logger.WithField("ticker", ticker).Warn("Data file not found, skipping ticker")
			continue
		}

		series, err := loadSeries(ticker, path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		s.series[ticker] = series
	}

	s.logger.WithFields(map[string]interface{}{
		"dir":     dir,
		"tickers": len(s.series),
	}).Info("Market data loaded")

	return s, nil
}

// ListTickers scans dir for daily_<ticker>.csv files without loading
// any of them. The API and CLI use it to show what is available.
func ListTickers(dir string) ([]string, error) {
	s := &Store{dir: dir}
	return s.discoverTickers()
}

// discoverTickers scans the data directory for daily_<ticker>.csv files.
func (s *Store) discoverTickers() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var tickers []string
	for _, entry := range entries {
		if m := csvFilePattern.FindStringSubmatch(entry.Name()); m != nil {
			tickers = append(tickers, strings.ToLower(m[1]))
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

// findFile checks both lowercase and uppercase filenames; deployments
// differ in how the download step cased the ticker.
func (s *Store) findFile(ticker string) (string, bool) {
	lower := filepath.Join(s.dir, fmt.Sprintf("daily_%s.csv", strings.ToLower(ticker)))
	if _, err := os.Stat(lower); err == nil {
		return lower, true
	}
	upper := filepath.Join(s.dir, fmt.Sprintf("daily_%s.csv", strings.ToUpper(ticker)))
	if _, err := os.Stat(upper); err == nil {
		return upper, true
	}
	return "", false
}

// Bar implements contracts.BarSource.
func (s *Store) Bar(ticker string, date time.Time) (*contracts.Bar, bool) {
	series, ok := s.series[strings.ToLower(ticker)]
	if !ok {
		return nil, false
	}
	return series.At(date)
}

// History implements contracts.BarSource.
func (s *Store) History(ticker string) (*contracts.Series, bool) {
	series, ok := s.series[strings.ToLower(ticker)]
	return series, ok
}

// Tickers implements contracts.BarSource.
func (s *Store) Tickers() []string {
	tickers := make([]string, 0, len(s.series))
	for t := range s.series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// loadSeries parses one daily_<ticker>.csv with a
// date,open,high,low,close,volume header into column form.
func loadSeries(ticker, path string) (*contracts.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var (
		dates                           []time.Time
		open, high, low, closes, volume []float64
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		date, err := time.Parse("2006-01-02", record[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", record[col["date"]], err)
		}

		row := make([]float64, 5)
		for i, name := range []string{"open", "high", "low", "close", "volume"} {
			v, err := strconv.ParseFloat(record[col[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s on %s: %w", name, record[col["date"]], err)
			}
			row[i] = v
		}

		dates = append(dates, date)
		open = append(open, row[0])
		high = append(high, row[1])
		low = append(low, row[2])
		closes = append(closes, row[3])
		volume = append(volume, row[4])
	}

	if len(dates) == 0 {
		return nil, fmt.Errorf("no rows")
	}

	return contracts.NewSeries(ticker, dates, open, high, low, closes, volume), nil
}

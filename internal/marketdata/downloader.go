package marketdata

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wonny/equisim/pkg/config"
	"github.com/wonny/equisim/pkg/httputil"
	"github.com/wonny/equisim/pkg/logger"
)

// Downloader fetches daily OHLCV history from Alpha Vantage and writes
// the daily_<ticker>.csv layout the Store reads
// ⭐ SSOT: 시장 데이터 다운로드는 여기서만
type Downloader struct {
	cfg    config.AlphaVantageConfig
	client *httputil.Client
	logger *logger.Logger
	outDir string
}

// NewDownloader creates a rate-limited downloader writing into outDir.
func NewDownloader(cfg config.AlphaVantageConfig, log *logger.Logger, outDir string) *Downloader {
	return &Downloader{
		cfg:    cfg,
		client: httputil.New(log).WithRateLimit(cfg.RequestsPerMinute),
		logger: log,
		outDir: outDir,
	}
}

// timeSeriesResponse mirrors the Alpha Vantage TIME_SERIES_DAILY payload.
type timeSeriesResponse struct {
	Note   string                    `json:"Note"`
	Series map[string]dailyBarFields `json:"Time Series (Daily)"`
}

type dailyBarFields struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// Download fetches and saves history for every ticker in the date
// range. A ticker that fails is logged and skipped; the first returned
// error is an environment problem (no API key, unwritable directory).
func (d *Downloader) Download(ctx context.Context, tickers []string, from, to time.Time) error {
	if d.cfg.APIKey == "" {
		return fmt.Errorf("ALPHA_VANTAGE_API_KEY is not set")
	}

	if err := os.MkdirAll(d.outDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	for _, ticker := range tickers {
		ticker = strings.ToLower(ticker)
		if err := d.downloadOne(ctx, ticker, from, to); err != nil {
			d.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"error":  err.Error(),
			}).Warn("Download failed, skipping ticker")
			continue
		}
		d.logger.WithField("ticker", ticker).Info("History saved")
	}

	return nil
}

// Missing returns the subset of tickers with no CSV file in outDir.
func (d *Downloader) Missing(tickers []string) []string {
	var missing []string
	for _, ticker := range tickers {
		ticker = strings.ToLower(ticker)
		path := filepath.Join(d.outDir, fmt.Sprintf("daily_%s.csv", ticker))
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, ticker)
		}
	}
	return missing
}

func (d *Downloader) downloadOne(ctx context.Context, ticker string, from, to time.Time) error {
	query := url.Values{}
	query.Set("function", "TIME_SERIES_DAILY")
	query.Set("symbol", strings.ToUpper(ticker))
	query.Set("outputsize", "full")
	query.Set("apikey", d.cfg.APIKey)

	resp, err := d.client.Get(ctx, d.cfg.BaseURL+"?"+query.Encode())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload timeSeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if len(payload.Series) == 0 {
		if payload.Note != "" {
			return fmt.Errorf("api note: %s", payload.Note)
		}
		return fmt.Errorf("no daily series in response")
	}

	// The payload is keyed by date; emit rows oldest first.
	dates := make([]string, 0, len(payload.Series))
	for dateStr := range payload.Series {
		dates = append(dates, dateStr)
	}
	sort.Strings(dates)

	fromStr := from.Format("2006-01-02")
	toStr := to.Format("2006-01-02")

	path := filepath.Join(d.outDir, fmt.Sprintf("daily_%s.csv", ticker))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	if err := writer.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}

	for _, dateStr := range dates {
		if dateStr < fromStr || dateStr > toStr {
			continue
		}
		bar := payload.Series[dateStr]
		if err := writer.Write([]string{dateStr, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

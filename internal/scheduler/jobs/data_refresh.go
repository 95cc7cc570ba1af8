// Package jobs holds the concrete scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/equisim/internal/marketdata"
	"github.com/wonny/equisim/pkg/config"
	"github.com/wonny/equisim/pkg/logger"
)

// DataRefreshJob re-downloads recent daily bars for every ticker that
// already has a CSV on disk
// ⭐ SSOT: 데이터 갱신 스케줄은 이 Job에서만
type DataRefreshJob struct {
	downloader *marketdata.Downloader
	config     *config.Config
	logger     *logger.Logger
}

// NewDataRefreshJob creates a new data refresh job
func NewDataRefreshJob(dl *marketdata.Downloader, cfg *config.Config, log *logger.Logger) *DataRefreshJob {
	return &DataRefreshJob{
		downloader: dl,
		config:     cfg,
		logger:     log,
	}
}

// Name returns the job name
func (j *DataRefreshJob) Name() string {
	return "data_refresh"
}

// Schedule returns the cron schedule (every day at 6 PM, after the
// close)
func (j *DataRefreshJob) Schedule() string {
	return "0 0 18 * * MON-FRI" // with seconds
}

// Run re-downloads the trailing year for every known ticker.
func (j *DataRefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled data refresh")

	tickers, err := marketdata.ListTickers(j.config.DataDir)
	if err != nil {
		return fmt.Errorf("scan data dir: %w", err)
	}
	if len(tickers) == 0 {
		j.logger.Warn("No data files found, nothing to refresh")
		return nil
	}

	to := time.Now()
	from := to.AddDate(-1, 0, 0)

	if err := j.downloader.Download(ctx, tickers, from, to); err != nil {
		return fmt.Errorf("refresh prices: %w", err)
	}

	j.logger.WithField("tickers", len(tickers)).Info("Scheduled data refresh completed")
	return nil
}

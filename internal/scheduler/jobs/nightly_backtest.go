package jobs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/wonny/equisim/internal/backtest"
	"github.com/wonny/equisim/internal/marketdata"
	"github.com/wonny/equisim/internal/report"
	"github.com/wonny/equisim/internal/simconfig"
	"github.com/wonny/equisim/pkg/config"
	"github.com/wonny/equisim/pkg/logger"
)

// NightlyBacktestJob re-runs a fixed scenario after each data refresh
// and appends the result to the master log, so drift in the strategy's
// performance shows up without anyone running it by hand
// ⭐ SSOT: 야간 시뮬레이션 스케줄은 이 Job에서만
type NightlyBacktestJob struct {
	scenarioPath string
	config       *config.Config
	logger       *logger.Logger
}

// NewNightlyBacktestJob creates a job that runs the scenario at path.
func NewNightlyBacktestJob(scenarioPath string, cfg *config.Config, log *logger.Logger) *NightlyBacktestJob {
	return &NightlyBacktestJob{
		scenarioPath: scenarioPath,
		config:       cfg,
		logger:       log,
	}
}

// Name returns the job name
func (j *NightlyBacktestJob) Name() string {
	return "nightly_backtest"
}

// Schedule returns the cron schedule (every day at 7 PM, after the
// data refresh)
func (j *NightlyBacktestJob) Schedule() string {
	return "0 0 19 * * MON-FRI" // with seconds
}

// Run loads the scenario, runs it against fresh data and records the
// result.
func (j *NightlyBacktestJob) Run(ctx context.Context) error {
	j.logger.WithField("scenario", j.scenarioPath).Info("Starting nightly backtest")

	cfg, _, err := simconfig.Load(j.scenarioPath)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	tickers := append([]string{}, cfg.Data.Tickers...)
	tickers = append(tickers, cfg.Data.Benchmark)
	store, err := marketdata.NewStore(j.config.DataDir, tickers, j.logger)
	if err != nil {
		return fmt.Errorf("load market data: %w", err)
	}

	engine, err := backtest.New(cfg, store, j.logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	result, err := engine.Run()
	if err != nil {
		return fmt.Errorf("run scenario %s: %w", cfg.Meta.ScenarioID, err)
	}

	if _, err := report.WriteRunArtifacts(j.config.ResultsDir, cfg, result); err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}

	masterLog, err := report.NewMasterLog(filepath.Join(j.config.ResultsDir, "master_log.csv"))
	if err != nil {
		return fmt.Errorf("open master log: %w", err)
	}
	if err := masterLog.Append(cfg, result); err != nil {
		return fmt.Errorf("append master log: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"scenario":    cfg.Meta.ScenarioID,
		"final_value": result.FinalValue,
	}).Info("Nightly backtest completed")

	return nil
}

package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/equisim/internal/backtest"
	"github.com/wonny/equisim/internal/simconfig"
)

// MasterLog appends one summary row per completed run to a shared CSV
// so every simulation ever run stays comparable at a glance. The file
// is created with a header on first use and appended to afterwards.
type MasterLog struct {
	path string
}

var masterLogHeader = []string{
	"run_timestamp", "scenario_id", "config_hash", "start_date", "end_date",
	"initial_cash", "ending_value", "total_return_pct", "annualized_return_pct",
	"sharpe_ratio", "max_drawdown_pct", "round_trips", "win_rate_pct",
	"providers", "top_n", "rebalance_cadence", "stop_loss_pct", "take_profit_pct", "tickers",
}

// NewMasterLog opens (or creates) the master log at path.
func NewMasterLog(path string) (*MasterLog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create master log: %w", err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(masterLogHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write master log header: %w", err)
		}
		w.Flush()
		if err := f.Close(); err != nil {
			return nil, err
		}
	}
	return &MasterLog{path: path}, nil
}

// Append records one finished run.
func (m *MasterLog) Append(cfg *simconfig.Config, result *backtest.Result) error {
	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open master log: %w", err)
	}
	defer f.Close()

	providers := make([]string, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers = append(providers, p.Name)
	}

	met := result.Metrics
	w := csv.NewWriter(f)
	w.Write([]string{
		time.Now().Format("2006-01-02 15:04:05"),
		result.ScenarioID,
		result.ConfigHash,
		cfg.Data.StartDate,
		cfg.Data.EndDate,
		strconv.FormatFloat(cfg.Portfolio.InitialCash, 'f', 2, 64),
		strconv.FormatFloat(result.FinalValue, 'f', 2, 64),
		strconv.FormatFloat(met.TotalReturnPct, 'f', 2, 64),
		strconv.FormatFloat(met.AnnualizedReturnPct, 'f', 2, 64),
		strconv.FormatFloat(met.SharpeRatio, 'f', 4, 64),
		strconv.FormatFloat(met.MaxDrawdownPct, 'f', 2, 64),
		strconv.Itoa(met.TotalTrades),
		strconv.FormatFloat(met.WinRatePct, 'f', 2, 64),
		strings.Join(providers, ", "),
		strconv.Itoa(cfg.Portfolio.TopN),
		strconv.Itoa(cfg.Portfolio.RebalanceCadence),
		strconv.FormatFloat(cfg.Exits.StopLossPct, 'f', 4, 64),
		strconv.FormatFloat(cfg.Exits.TakeProfitPct, 'f', 4, 64),
		strings.Join(cfg.Data.Tickers, " "),
	})
	w.Flush()
	return w.Error()
}

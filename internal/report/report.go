package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wonny/equisim/internal/backtest"
	"github.com/wonny/equisim/internal/simconfig"
)

// WriteRunArtifacts writes the full artifact set for one finished
// run: performance_report.txt, equity_curve.csv and trade_history.csv
// under a per-run directory named after the scenario.
func WriteRunArtifacts(baseDir string, cfg *simconfig.Config, result *backtest.Result) (string, error) {
	dir, err := RunDir(baseDir, result.ScenarioID)
	if err != nil {
		return "", err
	}

	if err := writePerformanceReport(dir, cfg, result); err != nil {
		return "", err
	}
	if err := writeEquityCurve(dir, result); err != nil {
		return "", err
	}
	if err := writeTradeHistory(dir, result); err != nil {
		return "", err
	}
	return dir, nil
}

// RunDir creates and returns the per-run artifact directory for a
// scenario. Callers that attach live CSV auditors use it to place
// trades_log.csv and portfolio_log.csv next to the final report.
func RunDir(baseDir, scenarioID string) (string, error) {
	dir := filepath.Join(baseDir, sanitize(scenarioID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	return dir, nil
}

func writePerformanceReport(dir string, cfg *simconfig.Config, result *backtest.Result) error {
	m := result.Metrics
	var b strings.Builder

	line := strings.Repeat("=", 50)
	thin := strings.Repeat("-", 50)

	fmt.Fprintf(&b, "Backtest Performance Report\n")
	fmt.Fprintf(&b, "scenario: %s\n", result.ScenarioID)
	fmt.Fprintf(&b, "config_hash: %s\n", result.ConfigHash)
	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "Key Performance Metrics\n%s\n", thin)
	fmt.Fprintf(&b, "Period: %s to %s\n", cfg.Data.StartDate, cfg.Data.EndDate)
	fmt.Fprintf(&b, "Starting Portfolio Value: $%.2f\n", cfg.Portfolio.InitialCash)
	fmt.Fprintf(&b, "Ending Portfolio Value:   $%.2f\n", result.FinalValue)
	fmt.Fprintf(&b, "Total Profit/Loss:        $%.2f\n", result.FinalValue-cfg.Portfolio.InitialCash)
	fmt.Fprintf(&b, "Total Return:             %.2f%%\n", m.TotalReturnPct)
	fmt.Fprintf(&b, "%s\n", thin)
	fmt.Fprintf(&b, "Annualized Return:        %.2f%%\n", m.AnnualizedReturnPct)
	fmt.Fprintf(&b, "Sharpe Ratio:             %.2f\n", m.SharpeRatio)
	fmt.Fprintf(&b, "Maximum Drawdown:         %.2f%%\n", m.MaxDrawdownPct)
	fmt.Fprintf(&b, "%s\n", thin)
	fmt.Fprintf(&b, "Round Trips:              %d\n", m.TotalTrades)
	fmt.Fprintf(&b, "Win Rate:                 %.2f%%\n", m.WinRatePct)
	fmt.Fprintf(&b, "Avg Win / Avg Loss:       $%.2f / $%.2f\n", m.AvgWinAmount, m.AvgLossAmount)

	if cfg.Exits.StopLossPct > 0 || cfg.Exits.TakeProfitPct > 0 {
		fmt.Fprintf(&b, "\n%s\nRisk Management Parameters\n%s\n", line, line)
		if cfg.Exits.StopLossPct > 0 {
			fmt.Fprintf(&b, "  Stop Loss: percentage at %.1f%%\n", cfg.Exits.StopLossPct*100)
		}
		if cfg.Exits.TakeProfitPct > 0 {
			fmt.Fprintf(&b, "  Take Profit: percentage at %.1f%%\n", cfg.Exits.TakeProfitPct*100)
		}
	}

	fmt.Fprintf(&b, "\n%s\nProviders\n%s\n", line, line)
	for _, p := range cfg.Providers {
		fmt.Fprintf(&b, "--- Provider: %s ---\n", p.Name)
		for k, v := range p.Params {
			fmt.Fprintf(&b, "  %s: %g\n", k, v)
		}
	}

	fmt.Fprintf(&b, "\n%s\nTickers Used in Simulation (%d)\n%s\n", line, len(cfg.Data.Tickers), line)
	for i := 0; i < len(cfg.Data.Tickers); i += 10 {
		end := i + 10
		if end > len(cfg.Data.Tickers) {
			end = len(cfg.Data.Tickers)
		}
		fmt.Fprintf(&b, "  %s\n", strings.Join(cfg.Data.Tickers[i:end], ", "))
	}
	fmt.Fprintf(&b, "%s\n", line)

	return os.WriteFile(filepath.Join(dir, "performance_report.txt"), []byte(b.String()), 0o644)
}

func writeEquityCurve(dir string, result *backtest.Result) error {
	f, err := os.Create(filepath.Join(dir, "equity_curve.csv"))
	if err != nil {
		return fmt.Errorf("create equity curve: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"date", "total_value", "cash"}); err != nil {
		return err
	}
	for _, p := range result.Equity {
		w.Write([]string{
			p.Date.Format(dateLayout),
			strconv.FormatFloat(p.TotalValue, 'f', 2, 64),
			strconv.FormatFloat(p.Cash, 'f', 2, 64),
		})
	}
	w.Flush()
	return w.Error()
}

func writeTradeHistory(dir string, result *backtest.Result) error {
	f, err := os.Create(filepath.Join(dir, "trade_history.csv"))
	if err != nil {
		return fmt.Errorf("create trade history: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ticker", "entry_date", "exit_date", "pnl"}); err != nil {
		return err
	}
	for _, trade := range result.Trades {
		w.Write([]string{
			trade.Ticker,
			trade.EntryDate.Format(dateLayout),
			trade.ExitDate.Format(dateLayout),
			strconv.FormatFloat(trade.PnL, 'f', 2, 64),
		})
	}
	w.Flush()
	return w.Error()
}

// sanitize maps a scenario identifier to a filesystem-safe directory
// name; sweep identifiers contain '/', '(' and ')'.
func sanitize(id string) string {
	r := strings.NewReplacer("/", "_", "(", "_", ")", "", "+", "-", " ", "_")
	return r.Replace(id)
}

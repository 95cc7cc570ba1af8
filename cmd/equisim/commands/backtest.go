package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/equisim/internal/backtest"
	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/internal/marketdata"
	"github.com/wonny/equisim/internal/report"
	"github.com/wonny/equisim/internal/simconfig"
	"github.com/wonny/equisim/pkg/config"
	"github.com/wonny/equisim/pkg/database"
	"github.com/wonny/equisim/pkg/logger"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스트 실행",
	Long: `시나리오 YAML을 사용하여 백테스트를 실행합니다.

백테스트는 다음을 검증합니다:
- 전략 수익률
- 리스크 지표 (Sharpe, MDD)
- 승률 및 거래 내역
- 시그널 기여도 (trades_log.csv)

Example:
  go run ./cmd/equisim backtest run --scenario scenarios/base.yaml
  go run ./cmd/equisim backtest run --scenario scenarios/base.yaml --db`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "시나리오 실행",
		Long: `시나리오 YAML에 정의된 백테스트를 실행하고 결과를 기록합니다.

Flags:
  --scenario  시나리오 YAML 경로 (필수)
  --db        CSV 대신 PostgreSQL에서 일봉 로드

Example:
  go run ./cmd/equisim backtest run --scenario scenarios/base.yaml`,
		RunE: runBacktest,
	}

	// Flags
	backtestScenario string
	backtestUseDB    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	// Flags
	backtestRunCmd.Flags().StringVar(&backtestScenario, "scenario", "", "시나리오 YAML 경로 (필수)")
	backtestRunCmd.Flags().BoolVar(&backtestUseDB, "db", false, "PostgreSQL에서 일봉 로드")

	backtestRunCmd.MarkFlagRequired("scenario")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== equisim Backtest Engine ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load and validate the scenario
	scenario, _, err := simconfig.Load(backtestScenario)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	fmt.Printf("\n📅 Period: %s ~ %s\n", scenario.Data.StartDate, scenario.Data.EndDate)
	fmt.Printf("💰 Initial Cash: %.2f\n", scenario.Portfolio.InitialCash)
	fmt.Printf("🔄 Rebalance: every %d trading days (top %d)\n",
		scenario.Portfolio.RebalanceCadence, scenario.Portfolio.TopN)
	fmt.Printf("💸 Commission: %.2f / fill, Slippage: %.2f%%\n",
		scenario.Costs.Commission, scenario.Costs.SlippagePct*100)
	names := make([]string, len(scenario.Providers))
	for i, p := range scenario.Providers {
		names[i] = p.Name
	}
	fmt.Printf("📡 Providers: %s\n\n", strings.Join(names, ", "))

	// 4. Load market data
	source, cleanup, err := loadBarSource(cmd.Context(), cfg, scenario, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// 5. Attach CSV auditors writing into the run directory
	runDir, err := report.RunDir(cfg.ResultsDir, scenario.Meta.ScenarioID)
	if err != nil {
		return err
	}
	tradeLog, err := report.NewTradeLog(runDir)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	defer tradeLog.Close()
	portfolioLog, err := report.NewPortfolioLog(runDir)
	if err != nil {
		return fmt.Errorf("open portfolio log: %w", err)
	}
	defer portfolioLog.Close()

	// 6. Build and run the engine
	engine, err := backtest.New(scenario, source, log)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	engine.WithTradeAuditor(tradeLog).WithPortfolioAuditor(portfolioLog)

	fmt.Println("🚀 Starting backtest...")
	fmt.Println()

	result, err := engine.Run()
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	// 7. Write artifacts and append the master log
	if _, err := report.WriteRunArtifacts(cfg.ResultsDir, scenario, result); err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}
	masterLog, err := report.NewMasterLog(filepath.Join(cfg.ResultsDir, "master_log.csv"))
	if err != nil {
		return fmt.Errorf("open master log: %w", err)
	}
	if err := masterLog.Append(scenario, result); err != nil {
		return fmt.Errorf("append master log: %w", err)
	}

	printBacktestResult(result)
	fmt.Printf("📁 Artifacts written to %s\n\n", runDir)

	return nil
}

// loadBarSource loads daily bars from CSV files, or from PostgreSQL
// when --db is set.
func loadBarSource(ctx context.Context, cfg *config.Config, scenario *simconfig.Config, log *logger.Logger) (contracts.BarSource, func(), error) {
	tickers := append([]string{}, scenario.Data.Tickers...)
	tickers = append(tickers, scenario.Data.Benchmark)

	if backtestUseDB {
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		repo := marketdata.NewRepository(db.Pool)
		source, err := repo.LoadSource(ctx, tickers, scenario.Data.Start(), scenario.Data.End())
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("load bars from database: %w", err)
		}
		return source, db.Close, nil
	}

	store, err := marketdata.NewStore(cfg.DataDir, tickers, log)
	if err != nil {
		return nil, nil, fmt.Errorf("load market data: %w", err)
	}
	return store, func() {}, nil
}

func printBacktestResult(result *backtest.Result) {
	m := result.Metrics

	fmt.Println("\n✅ Backtest Completed")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println()

	// Performance
	fmt.Println("💰 Performance")
	fmt.Printf("Final Value:     %.2f\n", result.FinalValue)
	fmt.Printf("Final Cash:      %.2f\n", result.FinalCash)
	fmt.Printf("Realized P&L:    %+.2f\n", result.RealizedPnL)
	fmt.Printf("Total Return:    %+.2f%%\n", m.TotalReturnPct)
	fmt.Printf("Annual Return:   %+.2f%%\n", m.AnnualizedReturnPct)
	fmt.Println()

	// Risk Metrics
	fmt.Println("📉 Risk Metrics")
	fmt.Printf("Sharpe Ratio:    %.2f", m.SharpeRatio)
	if m.SharpeRatio > 2.0 {
		fmt.Print(" 🌟 (Excellent)")
	} else if m.SharpeRatio > 1.0 {
		fmt.Print(" ✅ (Good)")
	} else if m.SharpeRatio > 0 {
		fmt.Print(" ⚠️  (Fair)")
	} else {
		fmt.Print(" ❌ (Poor)")
	}
	fmt.Println()
	fmt.Printf("Max Drawdown:    %.2f%%\n", m.MaxDrawdownPct)
	fmt.Println()

	// Trading Metrics
	fmt.Println("💹 Trading Metrics")
	fmt.Printf("Round Trips:     %d\n", m.TotalTrades)
	fmt.Printf("Winning Trades:  %d (%.1f%%)\n", m.WinningTrades, m.WinRatePct)
	fmt.Printf("Losing Trades:   %d\n", m.LosingTrades)
	fmt.Printf("Avg Win:         %+.2f\n", m.AvgWinAmount)
	fmt.Printf("Avg Loss:        %+.2f\n", m.AvgLossAmount)
	fmt.Println()

	// Open positions at the end of the run
	if len(result.Positions) > 0 {
		fmt.Println("📦 Open Positions")
		for _, pos := range result.Positions {
			fmt.Printf("%-8s %5d shares @ %.2f\n", strings.ToUpper(pos.Ticker), pos.Shares, pos.AvgCost)
		}
		fmt.Println()
	}

	// Equity curve (last 10 points)
	fmt.Println("📈 Equity Curve (Last 10 Days)")
	startIdx := len(result.Equity) - 10
	if startIdx < 0 {
		startIdx = 0
	}
	for _, point := range result.Equity[startIdx:] {
		fmt.Printf("%s: %.2f\n", point.Date.Format("2006-01-02"), point.TotalValue)
	}
	fmt.Println()
}

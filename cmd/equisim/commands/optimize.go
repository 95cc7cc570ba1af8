package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/equisim/internal/backtest"
	"github.com/wonny/equisim/internal/marketdata"
	"github.com/wonny/equisim/internal/report"
	"github.com/wonny/equisim/internal/simconfig"
	"github.com/wonny/equisim/pkg/config"
	"github.com/wonny/equisim/pkg/logger"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "파라미터 스윕 실행",
	Long: `그리드 YAML에 정의된 모든 파라미터 조합으로 시나리오를 반복 실행합니다.

각 조합은 독립적인 엔진으로 실행되며, 실패한 조합은 건너뛰고
스윕은 계속됩니다. 모든 결과는 master_log.csv 한 줄로 쌓입니다.

Grid YAML:
  providers:
    - name: momentum
      params:
        window: [5, 10, 20]
    - name: rsi
      enabled: false

Example:
  go run ./cmd/equisim optimize --scenario scenarios/base.yaml --grid scenarios/grid.yaml`,
	RunE: runOptimize,
}

var (
	optimizeScenario string
	optimizeGrid     string
	optimizeTop      int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	// Flags
	optimizeCmd.Flags().StringVar(&optimizeScenario, "scenario", "", "기본 시나리오 YAML 경로 (필수)")
	optimizeCmd.Flags().StringVar(&optimizeGrid, "grid", "", "그리드 YAML 경로 (필수)")
	optimizeCmd.Flags().IntVar(&optimizeTop, "top", 10, "요약에 표시할 상위 결과 수")

	optimizeCmd.MarkFlagRequired("scenario")
	optimizeCmd.MarkFlagRequired("grid")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	fmt.Println("=== equisim Optimizer ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	base, _, err := simconfig.Load(optimizeScenario)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	grid, err := loadGrid(optimizeGrid)
	if err != nil {
		return fmt.Errorf("load grid: %w", err)
	}

	tickers := append([]string{}, base.Data.Tickers...)
	tickers = append(tickers, base.Data.Benchmark)
	store, err := marketdata.NewStore(cfg.DataDir, tickers, log)
	if err != nil {
		return fmt.Errorf("load market data: %w", err)
	}

	combos := grid.Combinations()
	fmt.Printf("\n📅 Period: %s ~ %s\n", base.Data.StartDate, base.Data.EndDate)
	fmt.Printf("🧮 Grid cells: %d\n\n", len(combos))
	fmt.Println("🚀 Starting sweep...")
	fmt.Println()

	optimizer := backtest.NewOptimizer(base, store, log)
	results := optimizer.Run(grid)

	masterLog, err := report.NewMasterLog(filepath.Join(cfg.ResultsDir, "master_log.csv"))
	if err != nil {
		return fmt.Errorf("open master log: %w", err)
	}

	var failed int
	for _, sr := range results {
		if sr.Err != nil {
			failed++
			continue
		}
		runCfg := *base
		runCfg.Providers = sr.Providers
		runCfg.Meta.ScenarioID = sr.ScenarioID
		if _, err := report.WriteRunArtifacts(cfg.ResultsDir, &runCfg, sr.Result); err != nil {
			return fmt.Errorf("write artifacts for %s: %w", sr.ScenarioID, err)
		}
		if err := masterLog.Append(&runCfg, sr.Result); err != nil {
			return fmt.Errorf("append master log: %w", err)
		}
	}

	printSweepSummary(results, failed)
	fmt.Printf("📁 Master log: %s\n\n", filepath.Join(cfg.ResultsDir, "master_log.csv"))

	return nil
}

func loadGrid(path string) (backtest.Grid, error) {
	var grid backtest.Grid

	data, err := os.ReadFile(path)
	if err != nil {
		return grid, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&grid); err != nil {
		return grid, fmt.Errorf("parse grid: %w", err)
	}
	if len(grid.Providers) == 0 {
		return grid, fmt.Errorf("grid has no providers")
	}
	return grid, nil
}

func printSweepSummary(results []backtest.ScenarioResult, failed int) {
	fmt.Println("\n✅ Sweep Completed")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Printf("\nTotal cells: %d, failed: %d\n\n", len(results), failed)

	// Rank the successful cells by total return.
	ok := make([]backtest.ScenarioResult, 0, len(results))
	for _, sr := range results {
		if sr.Err == nil {
			ok = append(ok, sr)
		}
	}
	sort.Slice(ok, func(i, j int) bool {
		return ok[i].Result.Metrics.TotalReturnPct > ok[j].Result.Metrics.TotalReturnPct
	})

	top := optimizeTop
	if top > len(ok) {
		top = len(ok)
	}

	fmt.Printf("🏆 Top %d by total return\n", top)
	for i, sr := range ok[:top] {
		m := sr.Result.Metrics
		fmt.Printf("%2d. %-50s  %+7.2f%%  sharpe %.2f  mdd %.2f%%\n",
			i+1, sr.ScenarioID, m.TotalReturnPct, m.SharpeRatio, m.MaxDrawdownPct)
	}
	fmt.Println()

	if failed > 0 {
		fmt.Println("⚠️  Failed cells:")
		for _, sr := range results {
			if sr.Err != nil {
				fmt.Printf("   - %s: %v\n", sr.ScenarioID, sr.Err)
			}
		}
		fmt.Println()
	}
}

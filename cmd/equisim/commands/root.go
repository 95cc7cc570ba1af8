package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "equisim",
	Short: "equisim - 시그널 기반 백테스트 시뮬레이터",
	Long: `equisim Unified CLI

일봉 데이터 위에서 시그널 조합 전략을 시뮬레이션합니다.
시나리오 YAML 하나로 유니버스, 비용, 청산 규칙, 시그널을 정의합니다.

Usage:
  go run ./cmd/equisim [command]

Examples:
  go run ./cmd/equisim backtest run --scenario scenarios/base.yaml
  go run ./cmd/equisim optimize --scenario scenarios/base.yaml --grid scenarios/grid.yaml
  go run ./cmd/equisim fetch AAPL MSFT SPY
  go run ./cmd/equisim api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

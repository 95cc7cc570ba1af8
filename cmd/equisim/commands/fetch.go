package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/equisim/internal/marketdata"
	"github.com/wonny/equisim/pkg/config"
	"github.com/wonny/equisim/pkg/logger"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [tickers...]",
	Short: "일봉 데이터 다운로드",
	Long: `Alpha Vantage에서 일봉 히스토리를 다운로드하여
daily_<ticker>.csv 파일로 저장합니다.

티커를 지정하지 않으면 데이터 디렉토리의 기존 파일을 모두 갱신합니다.
ALPHA_VANTAGE_API_KEY 환경변수가 필요합니다.

Example:
  go run ./cmd/equisim fetch AAPL MSFT SPY
  go run ./cmd/equisim fetch --from 2020-01-01 AAPL
  go run ./cmd/equisim fetch --missing-only AAPL MSFT SPY`,
	RunE: runFetch,
}

var (
	fetchFrom        string
	fetchTo          string
	fetchMissingOnly bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	// Flags
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "시작 날짜 (YYYY-MM-DD, 기본: 3년 전)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")
	fetchCmd.Flags().BoolVar(&fetchMissingOnly, "missing-only", false, "CSV가 없는 티커만 다운로드")
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Println("=== equisim Data Fetcher ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	to := time.Now()
	if fetchTo != "" {
		to, err = time.Parse("2006-01-02", fetchTo)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}
	from := to.AddDate(-3, 0, 0)
	if fetchFrom != "" {
		from, err = time.Parse("2006-01-02", fetchFrom)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	}

	tickers := args
	if len(tickers) == 0 {
		tickers, err = marketdata.ListTickers(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("scan data dir: %w", err)
		}
		if len(tickers) == 0 {
			return fmt.Errorf("no tickers given and no existing data files in %s", cfg.DataDir)
		}
		fmt.Printf("No tickers given, refreshing %d existing files\n", len(tickers))
	}

	downloader := marketdata.NewDownloader(cfg.AlphaVantage, log, cfg.DataDir)

	if fetchMissingOnly {
		tickers = downloader.Missing(tickers)
		if len(tickers) == 0 {
			fmt.Println("✅ All tickers already have data files")
			return nil
		}
	}

	fmt.Printf("\n📅 Period: %s ~ %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("📡 Tickers: %s\n", strings.ToUpper(strings.Join(tickers, ", ")))
	fmt.Printf("📁 Output: %s\n\n", cfg.DataDir)

	if err := downloader.Download(cmd.Context(), tickers, from, to); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	fmt.Println("\n✅ Download completed")
	return nil
}

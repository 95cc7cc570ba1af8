// Package report persists run output: per-trade and per-day audit
// CSVs, the performance report, and the master sweep log.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wonny/equisim/internal/contracts"
)

const dateLayout = "2006-01-02"

// TradeLog streams every audited trade into trades_log.csv. It
// implements contracts.TradeAuditor.
type TradeLog struct {
	file    *os.File
	writer  *csv.Writer
	tradeID int
}

// NewTradeLog creates/truncates trades_log.csv in dir.
func NewTradeLog(dir string) (*TradeLog, error) {
	f, err := os.Create(filepath.Join(dir, "trades_log.csv"))
	if err != nil {
		return nil, fmt.Errorf("create trade log: %w", err)
	}

	w := csv.NewWriter(f)
	header := []string{"trade_id", "date", "ticker", "side", "quantity", "price", "total_cost", "reason", "score", "score_breakdown"}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write trade log header: %w", err)
	}

	return &TradeLog{file: f, writer: w}, nil
}

// LogTrade implements contracts.TradeAuditor.
func (t *TradeLog) LogTrade(date time.Time, ticker string, side contracts.Side, qty int, price float64, reason string, score float64, breakdown map[string]float64) {
	t.tradeID++

	breakdownJSON := ""
	if len(breakdown) > 0 {
		if b, err := json.Marshal(breakdown); err == nil {
			breakdownJSON = string(b)
		}
	}

	t.writer.Write([]string{
		strconv.Itoa(t.tradeID),
		date.Format(dateLayout),
		ticker,
		string(side),
		strconv.Itoa(qty),
		strconv.FormatFloat(price, 'f', 4, 64),
		strconv.FormatFloat(float64(qty)*price, 'f', 2, 64),
		reason,
		strconv.FormatFloat(score, 'f', 4, 64),
		breakdownJSON,
	})
}

// Close flushes and closes the log file.
func (t *TradeLog) Close() error {
	t.writer.Flush()
	if err := t.writer.Error(); err != nil {
		t.file.Close()
		return err
	}
	return t.file.Close()
}

// PortfolioLog streams the daily portfolio state into
// portfolio_log.csv. It implements contracts.PortfolioAuditor.
type PortfolioLog struct {
	file   *os.File
	writer *csv.Writer
}

// NewPortfolioLog creates/truncates portfolio_log.csv in dir.
func NewPortfolioLog(dir string) (*PortfolioLog, error) {
	f, err := os.Create(filepath.Join(dir, "portfolio_log.csv"))
	if err != nil {
		return nil, fmt.Errorf("create portfolio log: %w", err)
	}

	w := csv.NewWriter(f)
	header := []string{"date", "total_value", "invested_value", "cash", "position_count", "realized_pnl"}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write portfolio log header: %w", err)
	}

	return &PortfolioLog{file: f, writer: w}, nil
}

// LogPortfolioState implements contracts.PortfolioAuditor.
func (p *PortfolioLog) LogPortfolioState(date time.Time, totalValue, cash, realizedPnL float64, positionCount int) {
	p.writer.Write([]string{
		date.Format(dateLayout),
		strconv.FormatFloat(totalValue, 'f', 2, 64),
		strconv.FormatFloat(totalValue-cash, 'f', 2, 64),
		strconv.FormatFloat(cash, 'f', 2, 64),
		strconv.Itoa(positionCount),
		strconv.FormatFloat(realizedPnL, 'f', 2, 64),
	})
}

// Close flushes and closes the log file.
func (p *PortfolioLog) Close() error {
	p.writer.Flush()
	if err := p.writer.Error(); err != nil {
		p.file.Close()
		return err
	}
	return p.file.Close()
}

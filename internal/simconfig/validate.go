package simconfig

import (
	"fmt"
	"time"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints on a scenario.
// 실패 시 error 반환 (시뮬레이션 시작 전 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ScenarioID == "" {
		return ValidationError{"meta.scenario_id", "required"}
	}

	// === Data ===
	if len(cfg.Data.Tickers) == 0 {
		return ValidationError{"data.tickers", "at least one ticker required"}
	}
	for i, t := range cfg.Data.Tickers {
		if t == "" {
			return ValidationError{fmt.Sprintf("data.tickers[%d]", i), "empty ticker"}
		}
	}
	if cfg.Data.Benchmark == "" {
		return ValidationError{"data.benchmark", "required"}
	}
	start, err := time.Parse(dateLayout, cfg.Data.StartDate)
	if err != nil {
		return ValidationError{"data.start_date", "must be YYYY-MM-DD"}
	}
	end, err := time.Parse(dateLayout, cfg.Data.EndDate)
	if err != nil {
		return ValidationError{"data.end_date", "must be YYYY-MM-DD"}
	}
	if !start.Before(end) {
		return ValidationError{"data", "start_date must be before end_date"}
	}

	// === Portfolio ===
	if cfg.Portfolio.InitialCash <= 0 {
		return ValidationError{"portfolio.initial_cash", "must be > 0"}
	}
	if cfg.Portfolio.TopN < 1 {
		return ValidationError{"portfolio.top_n", "must be >= 1"}
	}
	if cfg.Portfolio.RebalanceCadence < 1 {
		return ValidationError{"portfolio.rebalance_cadence", "must be >= 1"}
	}

	// === Costs ===
	if cfg.Costs.Commission < 0 {
		return ValidationError{"costs.commission", "must be >= 0"}
	}
	if cfg.Costs.SlippagePct < 0 || cfg.Costs.SlippagePct > 0.1 {
		return ValidationError{"costs.slippage_pct", "must be in [0, 0.1]"}
	}

	// === Exits ===
	if cfg.Exits.StopLossPct < 0 || cfg.Exits.StopLossPct >= 1 {
		return ValidationError{"exits.stop_loss_pct", "must be in [0, 1)"}
	}
	if cfg.Exits.TakeProfitPct < 0 {
		return ValidationError{"exits.take_profit_pct", "must be >= 0"}
	}

	// === Providers ===
	if len(cfg.Providers) == 0 {
		return ValidationError{"providers", "at least one provider required"}
	}
	for i, p := range cfg.Providers {
		if p.Name == "" {
			return ValidationError{fmt.Sprintf("providers[%d].name", i), "required"}
		}
	}

	return nil
}

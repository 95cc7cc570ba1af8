// Package simconfig loads and validates backtest scenario files.
package simconfig

import "time"

const dateLayout = "2006-01-02"

// Config는 백테스트 시나리오의 전체 설정
type Config struct {
	Meta      Meta       `yaml:"meta" json:"meta"`
	Data      Data       `yaml:"data" json:"data"`
	Portfolio Portfolio  `yaml:"portfolio" json:"portfolio"`
	Costs     Costs      `yaml:"costs" json:"costs"`
	Exits     Exits      `yaml:"exits" json:"exits"`
	Providers []Provider `yaml:"providers" json:"providers"`
}

// Meta 메타 정보
type Meta struct {
	ScenarioID string `yaml:"scenario_id" json:"scenario_id"`
	Version    string `yaml:"version" json:"version"`
}

// Data: universe, benchmark and date range
type Data struct {
	Tickers   []string `yaml:"tickers" json:"tickers"`
	Benchmark string   `yaml:"benchmark" json:"benchmark"`
	StartDate string   `yaml:"start_date" json:"start_date"` // YYYY-MM-DD
	EndDate   string   `yaml:"end_date" json:"end_date"`     // YYYY-MM-DD
}

// Start returns the parsed start date. Call after Validate.
func (d Data) Start() time.Time {
	t, _ := time.Parse(dateLayout, d.StartDate)
	return t
}

// End returns the parsed end date. Call after Validate.
func (d Data) End() time.Time {
	t, _ := time.Parse(dateLayout, d.EndDate)
	return t
}

// Portfolio: sizing and cadence
type Portfolio struct {
	InitialCash      float64 `yaml:"initial_cash" json:"initial_cash"`
	TopN             int     `yaml:"top_n" json:"top_n"`
	RebalanceCadence int     `yaml:"rebalance_cadence" json:"rebalance_cadence"`
}

// Costs: per-fill friction
type Costs struct {
	Commission  float64 `yaml:"commission" json:"commission"`
	SlippagePct float64 `yaml:"slippage_pct" json:"slippage_pct"`
}

// Exits: percentage stop rules, 0 disables
type Exits struct {
	StopLossPct   float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"take_profit_pct"`
}

// Provider: one enabled signal provider and its tuning knobs
type Provider struct {
	Name   string             `yaml:"name" json:"name"`
	Params map[string]float64 `yaml:"params" json:"params"`
}

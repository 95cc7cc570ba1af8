package simconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
meta:
  scenario_id: tech_momentum_v1
  version: "1.0"
data:
  tickers: [AAPL, MSFT, GOOG]
  benchmark: SPY
  start_date: "2023-01-01"
  end_date: "2023-12-31"
portfolio:
  initial_cash: 100000
  top_n: 2
  rebalance_cadence: 5
costs:
  commission: 1.0
  slippage_pct: 0.001
exits:
  stop_loss_pct: 0.1
  take_profit_pct: 0.2
providers:
  - name: momentum
    params:
      window: 5
  - name: rsi
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Meta.ScenarioID != "tech_momentum_v1" {
		t.Errorf("expected scenario_id=tech_momentum_v1, got %s", cfg.Meta.ScenarioID)
	}
	if len(cfg.Data.Tickers) != 3 {
		t.Errorf("expected 3 tickers, got %d", len(cfg.Data.Tickers))
	}
	if cfg.Data.Start().IsZero() || !cfg.Data.Start().Before(cfg.Data.End()) {
		t.Error("parsed dates should order start < end")
	}
	if cfg.Portfolio.TopN != 2 {
		t.Errorf("expected top_n=2, got %d", cfg.Portfolio.TopN)
	}
	if cfg.Providers[0].Params["window"] != 5 {
		t.Errorf("expected momentum window=5, got %v", cfg.Providers[0].Params)
	}
	if cfg.Providers[1].Params != nil {
		t.Error("provider without params should parse with nil params")
	}
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	bad := strings.Replace(validYAML, "version:", "verzion:", 1)
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("typo'd field must fail the strict decode")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, yamlData, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(yamlData) == 0 {
		t.Error("raw yaml bytes should be returned for audit")
	}

	hash, err := Hash(cfg)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing scenario id", func(c *Config) { c.Meta.ScenarioID = "" }, "meta.scenario_id"},
		{"no tickers", func(c *Config) { c.Data.Tickers = nil }, "data.tickers"},
		{"no benchmark", func(c *Config) { c.Data.Benchmark = "" }, "data.benchmark"},
		{"bad start date", func(c *Config) { c.Data.StartDate = "01/02/2023" }, "data.start_date"},
		{"inverted range", func(c *Config) { c.Data.StartDate = "2024-01-01" }, "data"},
		{"zero cash", func(c *Config) { c.Portfolio.InitialCash = 0 }, "portfolio.initial_cash"},
		{"zero top_n", func(c *Config) { c.Portfolio.TopN = 0 }, "portfolio.top_n"},
		{"zero cadence", func(c *Config) { c.Portfolio.RebalanceCadence = 0 }, "portfolio.rebalance_cadence"},
		{"negative commission", func(c *Config) { c.Costs.Commission = -1 }, "costs.commission"},
		{"absurd slippage", func(c *Config) { c.Costs.SlippagePct = 0.5 }, "costs.slippage_pct"},
		{"stop loss of 100%", func(c *Config) { c.Exits.StopLossPct = 1.0 }, "exits.stop_loss_pct"},
		{"no providers", func(c *Config) { c.Providers = nil }, "providers"},
		{"unnamed provider", func(c *Config) { c.Providers[0].Name = "" }, "providers[0].name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(validYAML))
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(cfg)

			err = Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestValidate_ZeroExitsAllowed(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Exits.StopLossPct = 0
	cfg.Exits.TakeProfitPct = 0

	if err := Validate(cfg); err != nil {
		t.Errorf("disabled exit rules should validate: %v", err)
	}
}

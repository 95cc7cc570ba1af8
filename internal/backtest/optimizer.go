package backtest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/equisim/internal/contracts"
	"github.com/wonny/equisim/internal/simconfig"
	"github.com/wonny/equisim/pkg/logger"
)

// Grid describes a parameter sweep: per provider, each parameter maps
// to its candidate values. The sweep runs the cartesian product of
// every enabled provider's parameter combinations.
type Grid struct {
	Providers []ProviderGrid `yaml:"providers" json:"providers"`
}

// ProviderGrid is one provider's axis of the sweep.
type ProviderGrid struct {
	Name    string               `yaml:"name" json:"name"`
	Enabled *bool                `yaml:"enabled" json:"enabled"` // nil = enabled
	Params  map[string][]float64 `yaml:"params" json:"params"`
}

// ScenarioResult is one sweep cell: the provider set it ran with and
// either the run result or the error that stopped it.
type ScenarioResult struct {
	ScenarioID string
	Providers  []simconfig.Provider
	Result     *Result
	Err        error
}

// Optimizer runs a scenario once per grid cell. Each cell gets a
// fully independent engine, ledger and score matrices; a failing or
// panicking cell is logged and the sweep continues
// ⭐ SSOT: 파라미터 스윕 루프는 여기서만
type Optimizer struct {
	base   *simconfig.Config
	source contracts.BarSource
	logger *logger.Logger
}

// NewOptimizer creates an optimizer over a validated base scenario.
func NewOptimizer(base *simconfig.Config, source contracts.BarSource, log *logger.Logger) *Optimizer {
	return &Optimizer{base: base, source: source, logger: log}
}

// Run sweeps the grid and returns one result per combination, in
// deterministic order.
func (o *Optimizer) Run(grid Grid) []ScenarioResult {
	combos := grid.Combinations()
	o.logger.WithFields(map[string]interface{}{
		"base":    o.base.Meta.ScenarioID,
		"configs": len(combos),
	}).Info("Starting optimizer sweep")

	results := make([]ScenarioResult, 0, len(combos))
	for i, combo := range combos {
		o.logger.Infof("Running backtest %d of %d: %s", i+1, len(combos), comboID(combo))
		results = append(results, o.runOne(combo))
	}

	o.logger.WithField("configs", len(combos)).Info("Optimizer sweep finished")
	return results
}

// runOne executes a single grid cell, containing any panic so one bad
// configuration cannot abort the whole sweep.
func (o *Optimizer) runOne(combo []simconfig.Provider) (sr ScenarioResult) {
	cfg := *o.base
	cfg.Providers = combo
	cfg.Meta.ScenarioID = o.base.Meta.ScenarioID + "/" + comboID(combo)

	sr.ScenarioID = cfg.Meta.ScenarioID
	sr.Providers = combo

	defer func() {
		if r := recover(); r != nil {
			sr.Err = fmt.Errorf("scenario %s panicked: %v", sr.ScenarioID, r)
			o.logger.WithField("scenario", sr.ScenarioID).Errorf("Scenario panicked: %v", r)
		}
	}()

	engine, err := New(&cfg, o.source, o.logger)
	if err != nil {
		sr.Err = err
		o.logger.WithError(err).WithField("scenario", sr.ScenarioID).Error("Scenario setup failed")
		return sr
	}

	result, err := engine.Run()
	if err != nil {
		sr.Err = err
		o.logger.WithError(err).WithField("scenario", sr.ScenarioID).Error("Scenario run failed")
		return sr
	}

	sr.Result = result
	return sr
}

// Combinations expands the grid into every provider-set combination.
// Parameter keys are iterated in sorted order so the expansion is
// reproducible run to run.
func (g Grid) Combinations() [][]simconfig.Provider {
	perProvider := make([][]simconfig.Provider, 0, len(g.Providers))
	for _, pg := range g.Providers {
		if pg.Enabled != nil && !*pg.Enabled {
			continue
		}
		perProvider = append(perProvider, pg.expand())
	}

	combos := [][]simconfig.Provider{{}}
	for _, options := range perProvider {
		next := make([][]simconfig.Provider, 0, len(combos)*len(options))
		for _, combo := range combos {
			for _, opt := range options {
				extended := make([]simconfig.Provider, len(combo), len(combo)+1)
				copy(extended, combo)
				next = append(next, append(extended, opt))
			}
		}
		combos = next
	}
	return combos
}

// expand produces every parameter combination for one provider.
func (pg ProviderGrid) expand() []simconfig.Provider {
	keys := make([]string, 0, len(pg.Params))
	for k := range pg.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	options := []map[string]float64{{}}
	for _, key := range keys {
		values := pg.Params[key]
		next := make([]map[string]float64, 0, len(options)*len(values))
		for _, opt := range options {
			for _, v := range values {
				extended := make(map[string]float64, len(opt)+1)
				for k2, v2 := range opt {
					extended[k2] = v2
				}
				extended[key] = v
				next = append(next, extended)
			}
		}
		options = next
	}

	providers := make([]simconfig.Provider, 0, len(options))
	for _, params := range options {
		if len(params) == 0 {
			params = nil
		}
		providers = append(providers, simconfig.Provider{Name: pg.Name, Params: params})
	}
	return providers
}

// comboID renders a provider set as a compact, stable identifier,
// e.g. "momentum(window5)+rsi(period10)".
func comboID(combo []simconfig.Provider) string {
	parts := make([]string, 0, len(combo))
	for _, p := range combo {
		keys := make([]string, 0, len(p.Params))
		for k := range p.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		kv := make([]string, 0, len(keys))
		for _, k := range keys {
			kv = append(kv, k+strconv.FormatFloat(p.Params[k], 'g', -1, 64))
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", p.Name, strings.Join(kv, "_")))
	}
	return strings.Join(parts, "+")
}

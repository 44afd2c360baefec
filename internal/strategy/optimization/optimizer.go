package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy"
	"smartMoneyBot/internal/strategy/analytics"
	"smartMoneyBot/internal/strategy/backtesting"
)

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	IsInt bool
}

// OptimizationResult holds the outcome of one combination
type OptimizationResult struct {
	Index      int
	Parameters map[string]float64
	Filters    strategy.Filters
	Result     *domain.BacktestResult
	Metrics    *analytics.PerformanceMetrics
	Err        error
}

// Label names the combination for reports.
func (r OptimizationResult) Label() string {
	if r.Parameters != nil {
		keys := make([]string, 0, len(r.Parameters))
		for k := range r.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%g", k, r.Parameters[k])
		}
		return strings.Join(parts, " ")
	}
	var names []string
	for _, name := range domain.FilterNames {
		if r.Filters.Enabled(name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// OptimizerConfig holds configuration for the optimizer
type OptimizerConfig struct {
	Base            backtesting.Setup
	ParameterRanges []ParameterRange
	Workers         int
}

// Optimizer runs independent backtests over parameter or filter combinations.
type Optimizer struct {
	config OptimizerConfig
	logger ports.Logger
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig, logger ports.Logger) (*Optimizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for optimizer")
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	for _, r := range config.ParameterRanges {
		if _, ok := setters[r.Name]; !ok {
			return nil, fmt.Errorf("unknown sweep parameter %q", r.Name)
		}
		if r.Step <= 0 || r.Max < r.Min {
			return nil, fmt.Errorf("invalid range for %s: min %g max %g step %g", r.Name, r.Min, r.Max, r.Step)
		}
	}
	return &Optimizer{config: config, logger: logger}, nil
}

// Sweep backtests every combination of the configured parameter ranges.
func (o *Optimizer) Sweep(ctx context.Context, klines []*domain.Kline) ([]OptimizationResult, error) {
	combinations := o.generateParameterCombinations()
	results := make([]OptimizationResult, len(combinations))
	setups := make([]backtesting.Setup, len(combinations))

	for i, params := range combinations {
		results[i] = OptimizationResult{Index: i, Parameters: params, Filters: o.config.Base.Strategy.Filters}
		setups[i] = cloneSetup(o.config.Base)
		for name, value := range params {
			setters[name](&setups[i], value)
		}
	}
	return o.run(ctx, klines, setups, results)
}

// FilterStudy backtests all 32 on/off combinations of the five filters.
func (o *Optimizer) FilterStudy(ctx context.Context, klines []*domain.Kline) ([]OptimizationResult, error) {
	n := 1 << len(domain.FilterNames)
	results := make([]OptimizationResult, n)
	setups := make([]backtesting.Setup, n)

	for mask := 0; mask < n; mask++ {
		f := filtersFromMask(mask)
		results[mask] = OptimizationResult{Index: mask, Filters: f}
		setups[mask] = cloneSetup(o.config.Base)
		setups[mask].Strategy.Filters = f
	}
	return o.run(ctx, klines, setups, results)
}

// run executes one engine per setup on a bounded pool. Each worker owns its
// engine and writes only its own slot; ordering happens after all finish.
func (o *Optimizer) run(ctx context.Context, klines []*domain.Kline, setups []backtesting.Setup, results []OptimizationResult) ([]OptimizationResult, error) {
	o.logger.Info(ctx, "Starting optimization", map[string]interface{}{
		"combinations": len(setups),
		"workers":      o.config.Workers,
		"candles":      len(klines),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i := range setups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			engine, err := setups[i].NewEngine(ports.NopLogger{})
			if err != nil {
				results[i].Err = err
				return nil
			}
			res := engine.Run(gctx, klines)
			results[i].Result = res
			if !res.Success {
				results[i].Err = fmt.Errorf("backtest failed: %s", res.Error)
				return nil
			}
			results[i].Metrics = analytics.AnalyzePerformance(res.Trades, res.InitialBalance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("optimization interrupted: %w", err)
	}

	sortResults(results)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	o.logger.Info(ctx, "Optimization finished", map[string]interface{}{
		"combinations": len(results),
		"failed":       failed,
	})
	return results, nil
}

// generateParameterCombinations generates all possible parameter combinations
func (o *Optimizer) generateParameterCombinations() []map[string]float64 {
	var combinations []map[string]float64
	var currentCombination map[string]float64

	var generate func(int)
	generate = func(paramIndex int) {
		if paramIndex == len(o.config.ParameterRanges) {
			combination := make(map[string]float64, len(currentCombination))
			for k, v := range currentCombination {
				combination[k] = v
			}
			combinations = append(combinations, combination)
			return
		}

		param := o.config.ParameterRanges[paramIndex]
		for step := 0; ; step++ {
			value := param.Min + float64(step)*param.Step
			if value > param.Max+param.Step/2 {
				break
			}
			if param.IsInt {
				value = math.Round(value)
			}
			currentCombination[param.Name] = value
			generate(paramIndex + 1)
		}
	}

	currentCombination = make(map[string]float64)
	generate(0)
	return combinations
}

// sortResults orders by net profit desc, Sharpe desc, max drawdown asc and
// then combination index. Failed combinations go last.
func sortResults(results []OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Err != nil {
			return a.Index < b.Index
		}
		ma, mb := a.Result.Metrics, b.Result.Metrics
		if ma.NetProfit != mb.NetProfit {
			return ma.NetProfit > mb.NetProfit
		}
		if ma.SharpeRatio != mb.SharpeRatio {
			return ma.SharpeRatio > mb.SharpeRatio
		}
		if ma.MaxDrawdown != mb.MaxDrawdown {
			return ma.MaxDrawdown < mb.MaxDrawdown
		}
		return a.Index < b.Index
	})
}

func filtersFromMask(mask int) strategy.Filters {
	bit := func(i int) bool { return mask&(1<<i) != 0 }
	return strategy.Filters{
		Volume:         bit(0),
		KeyLevels:      bit(1),
		Pattern:        bit(2),
		OrderFlow:      bit(3),
		LiquiditySweep: bit(4),
	}
}

// cloneSetup copies the pointer-held sections so workers never share them.
func cloneSetup(s backtesting.Setup) backtesting.Setup {
	if s.Regime != nil {
		rc := *s.Regime
		s.Regime = &rc
	}
	if s.Risk != nil {
		rc := *s.Risk
		s.Risk = &rc
	}
	return s
}

package optimization

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy"
	"smartMoneyBot/internal/strategy/backtesting"
)

func testKlines(n int, seed int64) []*domain.Kline {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]*domain.Kline, n)
	price := 2000.0
	for i := range klines {
		open := price
		closePrice := open * (1 + (rng.Float64()-0.5)*0.02)
		klines[i] = &domain.Kline{
			OpenTime:  start.Add(time.Duration(i) * 15 * time.Minute),
			CloseTime: start.Add(time.Duration(i+1)*15*time.Minute - time.Millisecond),
			Open:      open,
			High:      math.Max(open, closePrice) * (1 + rng.Float64()*0.004),
			Low:       math.Min(open, closePrice) * (1 - rng.Float64()*0.004),
			Close:     closePrice,
			Volume:    20000 + rng.Float64()*40000,
		}
		price = closePrice
	}
	return klines
}

func volumeOnlyBase() backtesting.Setup {
	s := backtesting.DefaultSetup()
	s.Strategy.Filters = strategy.Filters{Volume: true}
	s.Backtest.Params.VolumeThreshold = 10000
	return s
}

func TestSweep(t *testing.T) {
	config := OptimizerConfig{
		Base: volumeOnlyBase(),
		ParameterRanges: []ParameterRange{
			{Name: "VOLUME_THRESHOLD", Min: 10000, Max: 1e9, Step: 1e9 - 10000},
			{Name: "RISK_REWARD_RATIO", Min: 1, Max: 3, Step: 1},
		},
		Workers: 3,
	}
	optimizer, err := NewOptimizer(config, ports.NopLogger{})
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	results, err := optimizer.Sweep(context.Background(), testKlines(80, 11))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	expectedCombinations := 6 // 2 thresholds * 3 ratios
	if len(results) != expectedCombinations {
		t.Fatalf("Expected %d combinations, got %d", expectedCombinations, len(results))
	}

	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("Combination %s failed: %v", r.Label(), r.Err)
		}
		if r.Parameters["VOLUME_THRESHOLD"] == 1e9 && len(r.Result.Trades) != 0 {
			t.Errorf("Expected no trades with an unreachable volume threshold, got %d", len(r.Result.Trades))
		}
		if r.Metrics == nil || r.Metrics.TotalTrades != len(r.Result.Trades) {
			t.Errorf("Performance metrics missing or inconsistent for %s", r.Label())
		}
	}

	for i := 1; i < len(results); i++ {
		if results[i-1].Result.Metrics.NetProfit < results[i].Result.Metrics.NetProfit {
			t.Error("Results are not sorted by net profit in descending order")
		}
	}
}

func TestSweep_DeterministicAcrossWorkerCounts(t *testing.T) {
	klines := testKlines(60, 5)
	ranges := []ParameterRange{{Name: "STOP_LOSS_ATR_MULTIPLIER", Min: 1, Max: 2.5, Step: 0.5}}

	var orders [2][]int
	for n, workers := range []int{1, 4} {
		optimizer, err := NewOptimizer(OptimizerConfig{Base: volumeOnlyBase(), ParameterRanges: ranges, Workers: workers}, ports.NopLogger{})
		if err != nil {
			t.Fatalf("NewOptimizer failed: %v", err)
		}
		results, err := optimizer.Sweep(context.Background(), klines)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		for _, r := range results {
			orders[n] = append(orders[n], r.Index)
		}
	}

	if len(orders[0]) != 4 {
		t.Fatalf("Expected 4 combinations, got %d", len(orders[0]))
	}
	for i := range orders[0] {
		if orders[0][i] != orders[1][i] {
			t.Fatalf("Ordering differs between worker counts: %v vs %v", orders[0], orders[1])
		}
	}
}

func TestFilterStudy(t *testing.T) {
	base := backtesting.DefaultSetup()
	base.Backtest.Params.VolumeThreshold = 10000
	optimizer, err := NewOptimizer(OptimizerConfig{Base: base, Workers: 4}, ports.NopLogger{})
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	results, err := optimizer.FilterStudy(context.Background(), testKlines(60, 9))
	if err != nil {
		t.Fatalf("FilterStudy failed: %v", err)
	}
	if len(results) != 32 {
		t.Fatalf("Expected 32 filter combinations, got %d", len(results))
	}

	seen := make(map[int]bool)
	for _, r := range results {
		if seen[r.Index] {
			t.Errorf("Duplicate combination index %d", r.Index)
		}
		seen[r.Index] = true
		if r.Index == 0 {
			if r.Label() != "none" {
				t.Errorf("Expected label none for the empty combination, got %s", r.Label())
			}
			if len(r.Result.Trades) != 0 {
				t.Errorf("Expected no trades with every filter disabled, got %d", len(r.Result.Trades))
			}
		}
	}
}

func TestNewOptimizer_Validation(t *testing.T) {
	tests := []struct {
		name   string
		ranges []ParameterRange
	}{
		{"unknown parameter", []ParameterRange{{Name: "NOT_A_KEY", Min: 1, Max: 2, Step: 1}}},
		{"zero step", []ParameterRange{{Name: "RSI_PERIOD", Min: 10, Max: 20, Step: 0}}},
		{"inverted range", []ParameterRange{{Name: "RSI_PERIOD", Min: 20, Max: 10, Step: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewOptimizer(OptimizerConfig{ParameterRanges: tt.ranges}, ports.NopLogger{}); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestGenerateParameterCombinations(t *testing.T) {
	optimizer, err := NewOptimizer(OptimizerConfig{
		ParameterRanges: []ParameterRange{
			{Name: "RSI_PERIOD", Min: 10, Max: 11, Step: 1, IsInt: true},
			{Name: "LIQUIDITY_FACTOR", Min: 0.1, Max: 0.2, Step: 0.1},
		},
	}, ports.NopLogger{})
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}
	combinations := optimizer.generateParameterCombinations()

	expectedCombinations := 4
	if len(combinations) != expectedCombinations {
		t.Errorf("Expected %d parameter combinations, got %d", expectedCombinations, len(combinations))
	}

	expectedValues := map[string][]float64{
		"RSI_PERIOD":       {10, 11},
		"LIQUIDITY_FACTOR": {0.1, 0.2},
	}
	for _, combination := range combinations {
		for paramName, values := range expectedValues {
			value, exists := combination[paramName]
			if !exists {
				t.Errorf("Parameter %s not found in combination", paramName)
			}
			found := false
			for _, expected := range values {
				if math.Abs(value-expected) < 1e-12 {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Unexpected value %f for parameter %s", value, paramName)
			}
		}
	}
}

func TestSortResults(t *testing.T) {
	mk := func(index int, net, sharpe, dd float64) OptimizationResult {
		return OptimizationResult{
			Index:  index,
			Result: &domain.BacktestResult{Metrics: domain.Metrics{NetProfit: net, SharpeRatio: sharpe, MaxDrawdown: dd}},
		}
	}
	results := []OptimizationResult{
		{Index: 0, Err: errors.New("boom")},
		mk(1, 100, 1, 5),
		mk(2, 100, 1, 3),
		mk(3, 100, 2, 9),
		mk(4, 200, 0, 20),
		mk(5, 100, 1, 3),
	}
	sortResults(results)

	want := []int{4, 3, 2, 5, 1, 0}
	for i, r := range results {
		if r.Index != want[i] {
			t.Fatalf("Expected order %v, got index %d at position %d", want, r.Index, i)
		}
	}
}

func TestParameterNames(t *testing.T) {
	names := ParameterNames()
	if len(names) != len(setters) {
		t.Errorf("Expected %d names, got %d", len(setters), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Error("Parameter names are not sorted")
		}
	}
}

func TestParseParameterRange(t *testing.T) {
	r, err := ParseParameterRange("rsi_period=10:20:5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name != "RSI_PERIOD" || r.Min != 10 || r.Max != 20 || r.Step != 5 || !r.IsInt {
		t.Errorf("unexpected range: %+v", r)
	}

	r, err = ParseParameterRange("RISK_REWARD_RATIO=2.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Min != 2.5 || r.Max != 2.5 || r.IsInt {
		t.Errorf("single value range: %+v", r)
	}

	for _, bad := range []string{"RSI_PERIOD", "NOPE=1:2:1", "RSI_PERIOD=1:2", "RSI_PERIOD=5:1:1", "RSI_PERIOD=1:x:1", "RSI_PERIOD=1:2:0"} {
		if _, err := ParseParameterRange(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy/optimization"
	"smartMoneyBot/internal/utils"
)

type stubSource struct {
	klines []*domain.Kline
	err    error
	calls  int
}

func (s *stubSource) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	return s.klines, s.err
}

func (s *stubSource) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	s.calls++
	return s.klines, s.err
}

func (s *stubSource) Ping(ctx context.Context) error { return nil }

func bar(minute int) *domain.Kline {
	t := time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC)
	return &domain.Kline{OpenTime: t, CloseTime: t.Add(time.Minute - time.Millisecond), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
}

func TestLoadKlines_CSVTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.csv")
	require.NoError(t, utils.WriteKlinesToCSV([]*domain.Kline{bar(2), bar(1)}, path))

	source := &stubSource{}
	klines, err := LoadKlines(context.Background(), source, KlineRequest{CSVPath: path})
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.True(t, klines[0].OpenTime.Before(klines[1].OpenTime), "sorted ascending")
	assert.Zero(t, source.calls)
}

func TestLoadKlines_Exchange(t *testing.T) {
	source := &stubSource{klines: []*domain.Kline{bar(0)}}
	klines, err := LoadKlines(context.Background(), source, KlineRequest{Symbol: "BTCUSDT", Interval: "1m"})
	require.NoError(t, err)
	assert.Len(t, klines, 1)
	assert.Equal(t, 1, source.calls)

	source.err = ports.ErrRateLimited
	_, err = LoadKlines(context.Background(), source, KlineRequest{Symbol: "BTCUSDT", Interval: "1m"})
	assert.ErrorIs(t, err, ports.ErrRateLimited)

	_, err = LoadKlines(context.Background(), nil, KlineRequest{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	r := &domain.BacktestResult{
		ID: "run-1", Success: true, Symbol: "BTCUSDT", InitialBalance: 10000, FinalBalance: 10100,
		Metrics: domain.Metrics{NetProfit: 100, TotalTrades: 2, WinningTrades: 2, WinRate: 100, ProfitFactor: domain.Ratio(math.Inf(1))},
	}
	require.NoError(t, PrintSummary(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "10000.00 -> 10100.00")
	assert.Contains(t, out, "Infinity")

	buf.Reset()
	require.NoError(t, PrintSummary(&buf, domain.Failed("BTCUSDT", 10000, "no data")))
	assert.Contains(t, buf.String(), "FAILED")
	assert.Contains(t, buf.String(), "no data")
}

func TestPrintOptimizationResults(t *testing.T) {
	results := []optimization.OptimizationResult{
		{Index: 0, Parameters: map[string]float64{"RSI_PERIOD": 14}, Result: &domain.BacktestResult{Success: true, Metrics: domain.Metrics{TotalTrades: 3, NetProfit: 42}}},
		{Index: 1, Parameters: map[string]float64{"RSI_PERIOD": 21}, Err: errors.New("boom")},
		{Index: 2, Parameters: map[string]float64{"RSI_PERIOD": 28}},
	}
	var buf bytes.Buffer
	require.NoError(t, PrintOptimizationResults(&buf, results, 2))
	out := buf.String()
	assert.Contains(t, out, "RSI_PERIOD=14")
	assert.Contains(t, out, "42.00")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "RSI_PERIOD=28")
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintRuns(&buf, []ports.RunSummary{{ID: "abc", Symbol: "ETHUSDT", TotalTrades: 5, NetProfit: -12.5}}))
	assert.Contains(t, buf.String(), "abc")
	assert.Contains(t, buf.String(), "-12.50")
}

func TestPrintTradeAnalysis(t *testing.T) {
	entry := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		{EntryTime: entry, ExitTime: entry.Add(time.Hour), NetProfit: 30, ExitReason: domain.ExitTakeProfit},
		{EntryTime: entry.Add(24 * time.Hour), ExitTime: entry.Add(25 * time.Hour), NetProfit: -10, ExitReason: domain.ExitStopLoss},
	}
	var buf bytes.Buffer
	require.NoError(t, PrintTradeAnalysis(&buf, "run.json", trades, 1000))
	out := buf.String()
	assert.Contains(t, out, "## run.json")
	assert.Contains(t, out, "take_profit")
	assert.Contains(t, out, "stop_loss")
	assert.Contains(t, out, "2024-01")
	assert.Contains(t, out, "2024-02")
	assert.Contains(t, out, "50.0%")
}

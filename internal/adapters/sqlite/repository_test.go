package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "nested", "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleResult(net float64) *domain.BacktestResult {
	trades := []domain.Trade{
		{
			ID: "01HX0000000000000000000001", Symbol: "BTCUSDT", Direction: domain.Long,
			EntryPrice: 100, ExitPrice: 110, StopLoss: 95, TakeProfit: 110, Size: 2,
			EntryTime: t0, ExitTime: t0.Add(time.Hour), RiskAmount: 10, RiskRewardRatio: 2,
			GrossProfit: 20, Commission: 0.42, NetProfit: 19.58, ExitReason: domain.ExitTakeProfit,
		},
		{
			ID: "01HX0000000000000000000002", Symbol: "BTCUSDT", Direction: domain.Short,
			EntryPrice: 110, ExitPrice: 112, StopLoss: 112, TakeProfit: 106, Size: 1,
			EntryTime: t0.Add(2 * time.Hour), ExitTime: t0.Add(3 * time.Hour), RiskAmount: 2, RiskRewardRatio: 2,
			GrossProfit: -2, Commission: 0.222, NetProfit: net - 19.58, ExitReason: domain.ExitStopLoss,
		},
	}
	return &domain.BacktestResult{
		Success:        true,
		Symbol:         "BTCUSDT",
		StartDate:      t0,
		EndDate:        t0.Add(4 * time.Hour),
		InitialBalance: 10000,
		FinalBalance:   10000 + net,
		EquityCurve: []domain.EquityPoint{
			{Time: t0, Balance: 10000, Equity: 10000},
			{Time: t0.Add(time.Hour), Balance: 10019.58, Equity: 10019.58},
		},
		Trades: trades,
		Signals: []domain.SignalRecord{
			{Time: t0, Symbol: "BTCUSDT", Signal: domain.Signal{Action: domain.ActionBuy, EntryPrice: 100, StopLoss: 95, TakeProfit: 110}},
		},
		Metrics: domain.Metrics{TotalTrades: 2, NetProfit: net, SharpeRatio: 1.5, ProfitFactor: domain.Ratio(math.Inf(1))},
	}
}

func TestRepository_SaveAndLoadRun(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	result := sampleResult(15)
	runID, err := repo.SaveRun(ctx, result)
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	assert.Equal(t, runID, result.ID)

	loaded, err := repo.LoadRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, runID, loaded.ID)
	assert.True(t, loaded.Success)
	assert.Equal(t, "BTCUSDT", loaded.Symbol)
	assert.True(t, loaded.StartDate.Equal(result.StartDate))
	assert.InDelta(t, result.FinalBalance, loaded.FinalBalance, 1e-9)
	require.Len(t, loaded.Trades, 2)
	assert.Equal(t, result.Trades[0].ID, loaded.Trades[0].ID)
	assert.Equal(t, domain.Short, loaded.Trades[1].Direction)
	assert.Equal(t, domain.ExitStopLoss, loaded.Trades[1].ExitReason)
	assert.True(t, loaded.Trades[1].ExitTime.Equal(result.Trades[1].ExitTime))
	assert.InDelta(t, result.NetProfit(), loaded.NetProfit(), 1e-9)
	assert.Len(t, loaded.EquityCurve, 2)
	assert.Len(t, loaded.Signals, 1)
	assert.True(t, math.IsInf(float64(loaded.Metrics.ProfitFactor), 1))
}

func TestRepository_SaveRunDuplicate(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	result := sampleResult(5)
	result.ID = "fixed-id"
	_, err := repo.SaveRun(ctx, result)
	require.NoError(t, err)

	_, err = repo.SaveRun(ctx, sampleResultWithID("fixed-id"))
	assert.ErrorIs(t, err, ports.ErrDuplicateEntry)
}

func sampleResultWithID(runID string) *domain.BacktestResult {
	r := sampleResult(1)
	r.ID = runID
	return r
}

func TestRepository_LoadRunNotFound(t *testing.T) {
	repo := setupTestDB(t)
	_, err := repo.LoadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_ListRuns(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for _, net := range []float64{-50, 120, 30} {
		_, err := repo.SaveRun(ctx, sampleResult(net))
		require.NoError(t, err)
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.InDelta(t, 120, runs[0].NetProfit, 1e-9)
	assert.InDelta(t, 30, runs[1].NetProfit, 1e-9)
	assert.Equal(t, 2, runs[0].TotalTrades)
}

func TestRepository_Signals(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	records := []*domain.SignalRecord{
		{Time: t0, Symbol: "ETHUSDT", Signal: domain.Signal{Action: domain.ActionBuy, EntryPrice: 2000, StopLoss: 1950, TakeProfit: 2100}},
		{Time: t0.Add(5 * time.Minute), Symbol: "ETHUSDT", Signal: domain.Signal{
			Action: domain.ActionSell, EntryPrice: 2050, StopLoss: 2080, TakeProfit: 1990,
			Metadata: domain.SignalMetadata{
				Filters: map[string]domain.FilterResult{domain.FilterVolume: {Buy: true, Sell: true}},
				Regime:  &domain.RegimeInfo{Regime: domain.RegimeBear, Confidence: 0.75},
			},
		}},
		{Time: t0, Symbol: "BTCUSDT", Signal: domain.Signal{Action: domain.ActionBuy, EntryPrice: 60000}},
	}
	for _, rec := range records {
		rowID, err := repo.SaveSignal(ctx, rec)
		require.NoError(t, err)
		assert.Positive(t, rowID)
	}

	got, err := repo.RecentSignals(ctx, "ETHUSDT", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.ActionSell, got[0].Action)
	require.NotNil(t, got[0].Metadata.Regime)
	assert.Equal(t, domain.RegimeBear, got[0].Metadata.Regime.Regime)
	assert.True(t, got[0].Metadata.Filters[domain.FilterVolume].Buy)
	assert.True(t, got[1].Time.Equal(t0))

	got, err = repo.RecentSignals(ctx, "ETHUSDT", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

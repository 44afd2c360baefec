package analytics

import (
	"math"
	"testing"
	"time"

	"smartMoneyBot/internal/domain"
)

var day = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func TestAnalyzePerformance(t *testing.T) {
	initialBalance := 10000.0
	trades := []domain.Trade{
		{
			ID:         "b",
			Symbol:     "BTCUSDT",
			EntryPrice: 55000,
			ExitPrice:  50000,
			Size:       0.2,
			NetProfit:  -1000,
			EntryTime:  day.Add(12 * time.Hour),
			ExitTime:   day.Add(18 * time.Hour),
			ExitReason: domain.ExitStopLoss,
		},
		{
			ID:         "a",
			Symbol:     "BTCUSDT",
			EntryPrice: 50000,
			ExitPrice:  55000,
			Size:       0.2,
			NetProfit:  1000,
			EntryTime:  day,
			ExitTime:   day.Add(6 * time.Hour),
			ExitReason: domain.ExitTakeProfit,
		},
	}

	metrics := AnalyzePerformance(trades, initialBalance)

	if trades[0].ID != "b" {
		t.Errorf("Expected input order to be preserved")
	}
	if metrics.TotalTrades != 2 {
		t.Errorf("Expected 2 total trades, got %d", metrics.TotalTrades)
	}
	if metrics.WinningTrades != 1 || metrics.LosingTrades != 1 {
		t.Errorf("Expected 1 winning and 1 losing trade, got %d/%d", metrics.WinningTrades, metrics.LosingTrades)
	}
	if metrics.WinRate != 0.5 {
		t.Errorf("Expected 0.5 win rate, got %f", metrics.WinRate)
	}
	if metrics.TotalProfit != 0 {
		t.Errorf("Expected 0 total profit, got %f", metrics.TotalProfit)
	}
	if metrics.FinalBalance != initialBalance {
		t.Errorf("Expected final balance of %f, got %f", initialBalance, metrics.FinalBalance)
	}
	if metrics.AverageWin != 1000 || metrics.AverageLoss != -1000 {
		t.Errorf("Expected average win/loss 1000/-1000, got %f/%f", metrics.AverageWin, metrics.AverageLoss)
	}
	if metrics.ProfitFactor != 1.0 {
		t.Errorf("Expected 1.0 profit factor, got %f", float64(metrics.ProfitFactor))
	}
	if metrics.RiskRewardRatio != 1.0 {
		t.Errorf("Expected 1.0 risk reward ratio, got %f", metrics.RiskRewardRatio)
	}
	if metrics.ExitReasons[domain.ExitStopLoss] != 1 {
		t.Errorf("Expected one stop-loss exit, got %d", metrics.ExitReasons[domain.ExitStopLoss])
	}
	if metrics.AverageTradeDuration != 6*time.Hour {
		t.Errorf("Expected 6h average duration, got %v", metrics.AverageTradeDuration)
	}
	if monthly := metrics.GetMonthlyReturns(); len(monthly) != 1 {
		t.Errorf("Expected 1 monthly return, got %d", len(monthly))
	}
}

func TestAnalyzePerformanceEmptyTrades(t *testing.T) {
	metrics := AnalyzePerformance(nil, 10000.0)
	if metrics.TotalTrades != 0 {
		t.Errorf("Expected 0 total trades, got %d", metrics.TotalTrades)
	}
	if metrics.FinalBalance != 10000.0 {
		t.Errorf("Expected final balance of 10000.0, got %f", metrics.FinalBalance)
	}
}

func TestAnalyzePerformanceDrawdown(t *testing.T) {
	trades := []domain.Trade{
		{NetProfit: 1000, EntryTime: day, ExitTime: day.Add(time.Hour)},
		{NetProfit: -2200, EntryTime: day.Add(2 * time.Hour), ExitTime: day.Add(3 * time.Hour)},
		{NetProfit: 500, EntryTime: day.Add(4 * time.Hour), ExitTime: day.Add(5 * time.Hour)},
	}

	metrics := AnalyzePerformance(trades, 10000)

	expected := 2200.0 / 11000.0
	if math.Abs(metrics.MaxDrawdown-expected) > 1e-9 {
		t.Errorf("Expected max drawdown %f, got %f", expected, metrics.MaxDrawdown)
	}
	if len(metrics.Drawdowns) != 1 {
		t.Fatalf("Expected 1 open drawdown period, got %d", len(metrics.Drawdowns))
	}
	if metrics.Drawdowns[0].StartValue != 11000 {
		t.Errorf("Expected drawdown to start from the 11000 peak, got %f", metrics.Drawdowns[0].StartValue)
	}
	if metrics.MaxConsecutiveWins != 1 || metrics.MaxConsecutiveLosses != 1 {
		t.Errorf("Expected streaks of 1, got %d/%d", metrics.MaxConsecutiveWins, metrics.MaxConsecutiveLosses)
	}
}

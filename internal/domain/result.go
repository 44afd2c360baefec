package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// EquityPoint is the account value at one simulated bar.
type EquityPoint struct {
	Time    time.Time `json:"timestamp"`
	Balance float64   `json:"balance"`
	Equity  float64   `json:"equity"` // Balance plus unrealized P&L of the open position
}

// Ratio is a float that survives JSON with infinite values.
type Ratio float64

// MarshalJSON encodes infinities as strings and NaN as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON accepts numbers, null and the infinity strings.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*r = Ratio(math.NaN())
		return nil
	case `"Infinity"`, `"inf"`:
		*r = Ratio(math.Inf(1))
		return nil
	case `"-Infinity"`, `"-inf"`:
		*r = Ratio(math.Inf(-1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid ratio %s: %w", string(data), err)
	}
	*r = Ratio(f)
	return nil
}

// Metrics summarises a backtest. Percentages are expressed 0-100.
type Metrics struct {
	Return           float64 `json:"return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	ProfitFactor     Ratio   `json:"profit_factor"`
	WinRate          float64 `json:"win_rate"`
	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	LosingTrades     int     `json:"losing_trades"`
	AvgWin           float64 `json:"avg_win"`
	AvgLoss          float64 `json:"avg_loss"`
	GrossProfit      float64 `json:"gross_profit"`
	GrossLoss        float64 `json:"gross_loss"`
	Expectancy       float64 `json:"expectancy"`
	NetProfit        float64 `json:"net_profit"`
	TotalCommission  float64 `json:"total_commission"`
}

// BacktestResult is the flat, serializable outcome of one run.
type BacktestResult struct {
	ID             string         `json:"id,omitempty"`
	Success        bool           `json:"success"`
	Error          string         `json:"error,omitempty"`
	Symbol         string         `json:"symbol"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	InitialBalance float64        `json:"initial_balance"`
	FinalBalance   float64        `json:"final_balance"`
	EquityCurve    []EquityPoint  `json:"equity_curve"`
	Trades         []Trade        `json:"trades"`
	Signals        []SignalRecord `json:"signals"`
	Metrics        Metrics        `json:"metrics"`
}

// NetProfit is the sum of net profit over the trade ledger.
func (r *BacktestResult) NetProfit() float64 {
	total := 0.0
	for _, t := range r.Trades {
		total += t.NetProfit
	}
	return total
}

// Failed builds an unsuccessful result carrying msg.
func Failed(symbol string, initialBalance float64, msg string) *BacktestResult {
	return &BacktestResult{
		Symbol:         symbol,
		InitialBalance: initialBalance,
		FinalBalance:   initialBalance,
		Error:          msg,
		EquityCurve:    []EquityPoint{},
		Trades:         []Trade{},
		Signals:        []SignalRecord{},
	}
}

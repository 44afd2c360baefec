package analytics

import (
	"math"
	"sort"
	"time"

	"smartMoneyBot/internal/domain"
)

const year = 365 * 24 * time.Hour

// ProfitFactor is gross profit over absolute gross loss. It is +Inf when
// there are winners but no losers, and 0 for an empty or flat ledger.
func ProfitFactor(trades []domain.Trade) domain.Ratio {
	var gross, loss float64
	for _, t := range trades {
		if t.NetProfit > 0 {
			gross += t.NetProfit
		} else {
			loss += t.NetProfit
		}
	}
	if loss == 0 {
		if gross > 0 {
			return domain.Ratio(math.Inf(1))
		}
		return 0
	}
	return domain.Ratio(gross / math.Abs(loss))
}

// ComputeMetrics summarises a run from its equity curve and trade ledger.
// Percentages are 0-100; Sharpe is annualised from the median bar spacing.
func ComputeMetrics(curve []domain.EquityPoint, trades []domain.Trade, initialBalance, finalBalance float64) domain.Metrics {
	m := domain.Metrics{
		TotalTrades:  len(trades),
		ProfitFactor: ProfitFactor(trades),
	}

	for _, t := range trades {
		m.NetProfit += t.NetProfit
		m.TotalCommission += t.Commission
		switch {
		case t.NetProfit > 0:
			m.WinningTrades++
			m.GrossProfit += t.NetProfit
		case t.NetProfit < 0:
			m.LosingTrades++
			m.GrossLoss += t.NetProfit
		}
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if m.WinningTrades > 0 {
		m.AvgWin = m.GrossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = m.GrossLoss / float64(m.LosingTrades)
	}
	winRate := m.WinRate / 100
	m.Expectancy = winRate*m.AvgWin + (1-winRate)*m.AvgLoss

	if initialBalance > 0 {
		m.Return = (finalBalance - initialBalance) / initialBalance * 100
	}
	m.MaxDrawdown = MaxDrawdownPct(curve)

	if len(curve) > 1 {
		span := curve[len(curve)-1].Time.Sub(curve[0].Time)
		if span > 0 {
			m.AnnualizedReturn = m.Return * float64(year) / float64(span)
		}
		m.SharpeRatio = SharpeRatio(curve)
	}
	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.AnnualizedReturn / m.MaxDrawdown
	}

	m.Return = finite(m.Return)
	m.AnnualizedReturn = finite(m.AnnualizedReturn)
	m.SharpeRatio = finite(m.SharpeRatio)
	m.CalmarRatio = finite(m.CalmarRatio)
	return m
}

// MaxDrawdownPct is the deepest peak-to-trough fall of equity, in percent.
func MaxDrawdownPct(curve []domain.EquityPoint) float64 {
	peak, maxDD := math.Inf(-1), 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			maxDD = math.Max(maxDD, (peak-p.Equity)/peak*100)
		}
	}
	return maxDD
}

// SharpeRatio is the mean over the standard deviation of bar-to-bar equity
// returns, scaled by the square root of bars per year.
func SharpeRatio(curve []domain.EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Equity != 0 {
			returns = append(returns, curve[i].Equity/curve[i-1].Equity-1)
		}
	}
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	step := medianStep(curve)
	if step <= 0 {
		return mean / std
	}
	return mean / std * math.Sqrt(float64(year)/float64(step))
}

func medianStep(curve []domain.EquityPoint) time.Duration {
	steps := make([]time.Duration, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		steps = append(steps, curve[i].Time.Sub(curve[i-1].Time))
	}
	if len(steps) == 0 {
		return 0
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	return steps[len(steps)/2]
}

func meanStd(values []float64) (float64, float64) {
	if len(values) < 2 {
		return 0, 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)-1))
}

// TradeSharpe is the simplified Sharpe of trade-level percentage returns.
func TradeSharpe(trades []domain.Trade) float64 {
	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.ReturnPct()
	}
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

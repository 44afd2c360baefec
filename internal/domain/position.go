package domain

import "time"

// Position is a single open position. An engine holds at most one.
type Position struct {
	TradeID         string    `json:"trade_id"`
	Symbol          string    `json:"symbol"`
	Direction       Direction `json:"direction"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"` // 0 when no target is set
	Size            float64   `json:"size"`
	EntryTime       time.Time `json:"entry_time"`
	RiskAmount      float64   `json:"risk_amount"`       // Currency at risk between entry and stop
	RiskRewardRatio float64   `json:"risk_reward_ratio"` // Target distance over stop distance
	EntryCommission float64   `json:"entry_commission"`
}

// IsLong reports whether the position is long.
func (p *Position) IsLong() bool {
	return p.Direction == Long
}

// UnrealizedPNL is the mark-to-market profit of the position at price.
func (p *Position) UnrealizedPNL(price float64) float64 {
	if p == nil {
		return 0
	}
	return p.Direction.Sign() * (price - p.EntryPrice) * p.Size
}

// StopHit reports whether a bar with the given extremes touches the stop.
func (p *Position) StopHit(high, low float64) bool {
	if p.IsLong() {
		return low <= p.StopLoss
	}
	return high >= p.StopLoss
}

// TargetHit reports whether a bar with the given extremes touches the take-profit.
func (p *Position) TargetHit(high, low float64) bool {
	if p.TakeProfit <= 0 {
		return false
	}
	if p.IsLong() {
		return high >= p.TakeProfit
	}
	return low <= p.TakeProfit
}

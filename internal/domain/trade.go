package domain

import "time"

// Trade is a closed position. The trade ledger is append-only.
type Trade struct {
	ID              string     `json:"trade_id"`
	Symbol          string     `json:"symbol"`
	Direction       Direction  `json:"direction"`
	EntryPrice      float64    `json:"entry_price"`
	ExitPrice       float64    `json:"exit_price"`
	StopLoss        float64    `json:"stop_loss"`
	TakeProfit      float64    `json:"take_profit"`
	Size            float64    `json:"size"`
	EntryTime       time.Time  `json:"entry_time"`
	ExitTime        time.Time  `json:"exit_time"`
	RiskAmount      float64    `json:"risk_amount"`
	RiskRewardRatio float64    `json:"risk_reward_ratio"`
	GrossProfit     float64    `json:"gross_profit"`
	Commission      float64    `json:"commission"` // Entry plus exit commission
	NetProfit       float64    `json:"net_profit"`
	ExitReason      ExitReason `json:"exit_reason"`
}

// CloseTrade turns an open position into a trade at exitPrice.
func CloseTrade(p *Position, exitPrice float64, exitTime time.Time, exitCommission float64, reason ExitReason) Trade {
	gross := p.UnrealizedPNL(exitPrice)
	commission := p.EntryCommission + exitCommission
	return Trade{
		ID:              p.TradeID,
		Symbol:          p.Symbol,
		Direction:       p.Direction,
		EntryPrice:      p.EntryPrice,
		ExitPrice:       exitPrice,
		StopLoss:        p.StopLoss,
		TakeProfit:      p.TakeProfit,
		Size:            p.Size,
		EntryTime:       p.EntryTime,
		ExitTime:        exitTime,
		RiskAmount:      p.RiskAmount,
		RiskRewardRatio: p.RiskRewardRatio,
		GrossProfit:     gross,
		Commission:      commission,
		NetProfit:       gross - commission,
		ExitReason:      reason,
	}
}

// ReturnPct is the net profit as a percentage of the entry notional.
func (t Trade) ReturnPct() float64 {
	notional := t.EntryPrice * t.Size
	if notional == 0 {
		return 0
	}
	return t.NetProfit / notional * 100
}

// IsWin reports whether the trade closed with a positive net profit.
func (t Trade) IsWin() bool {
	return t.NetProfit > 0
}

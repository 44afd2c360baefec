package domain

import "time"

// Action is the decision a signal generator emits for the latest bar.
type Action string

const (
	ActionBuy        Action = "BUY"
	ActionSell       Action = "SELL"
	ActionHold       Action = "HOLD"
	ActionCloseLong  Action = "CLOSE_LONG"
	ActionCloseShort Action = "CLOSE_SHORT"
)

// IsEntry reports whether the action opens a position.
func (a Action) IsEntry() bool {
	return a == ActionBuy || a == ActionSell
}

// Filter names used as keys in SignalMetadata.Filters.
const (
	FilterVolume         = "volume"
	FilterKeyLevels      = "key_levels"
	FilterPattern        = "pattern"
	FilterOrderFlow      = "order_flow"
	FilterLiquiditySweep = "liquidity_sweep"
)

// FilterNames lists every filter in evaluation order.
var FilterNames = []string{FilterVolume, FilterKeyLevels, FilterPattern, FilterOrderFlow, FilterLiquiditySweep}

// FilterResult holds the buy and sell condition of one enabled filter.
type FilterResult struct {
	Buy  bool `json:"buy"`
	Sell bool `json:"sell"`
}

// Params are the strategy parameters a regime may rescale.
type Params struct {
	VolumeThreshold float64 `json:"volume_threshold"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
	LiquidityFactor float64 `json:"liquidity_factor"`
}

// Multipliers rescale Params for one regime.
type Multipliers struct {
	VolumeThreshold float64 `json:"volume_threshold_multiplier" yaml:"volume_threshold_multiplier"`
	RiskReward      float64 `json:"risk_reward_multiplier" yaml:"risk_reward_multiplier"`
	LiquidityFactor float64 `json:"liquidity_factor_multiplier" yaml:"liquidity_factor_multiplier"`
}

// RegimeInfo describes the regime classification behind a signal.
type RegimeInfo struct {
	Regime         Regime  `json:"regime"`
	Confidence     float64 `json:"confidence"`
	Params         Params  `json:"adjusted_params"`
	Vetoed         bool    `json:"vetoed,omitempty"`
	VetoReason     string  `json:"veto_reason,omitempty"`
	OriginalAction Action  `json:"original_action,omitempty"`
}

// SignalMetadata carries diagnostics; only enabled filters appear in Filters.
type SignalMetadata struct {
	Filters map[string]FilterResult `json:"filters"`
	Session string                  `json:"session,omitempty"`
	Regime  *RegimeInfo             `json:"regime,omitempty"`
}

// Signal is the per-bar decision. It is never held as state.
type Signal struct {
	Action     Action         `json:"action"`
	EntryPrice float64        `json:"entry_price"`
	StopLoss   float64        `json:"stop_loss"`
	TakeProfit float64        `json:"take_profit"`
	Metadata   SignalMetadata `json:"metadata"`
}

// Hold returns a HOLD signal priced at the given close.
func Hold(price float64, meta SignalMetadata) Signal {
	return Signal{Action: ActionHold, EntryPrice: price, Metadata: meta}
}

// SignalRecord is a signal stamped with the bar it was produced on.
type SignalRecord struct {
	Time   time.Time `json:"timestamp"`
	Symbol string    `json:"symbol"`
	Signal
}

package domain

import (
	"math"
	"time"
)

// Kline represents a single OHLCV candle. A series of klines is always ordered
// by ascending OpenTime.
type Kline struct {
	OpenTime  time.Time `json:"timestamp"`            // Start time of the interval
	CloseTime time.Time `json:"close_time,omitempty"` // End time of the interval
	Symbol    string    `json:"symbol,omitempty"`     // Trading symbol
	Interval  string    `json:"interval,omitempty"`   // Kline interval (e.g., "5m", "1h")
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	IsFinal   bool      `json:"is_final,omitempty"` // Whether the exchange has closed this interval
}

// Range is the high-low span of the candle.
func (k *Kline) Range() float64 {
	return k.High - k.Low
}

// Body is the absolute open-close span of the candle.
func (k *Kline) Body() float64 {
	return math.Abs(k.Close - k.Open)
}

// IsBullish reports whether the candle closed above its open.
func (k *Kline) IsBullish() bool {
	return k.Close > k.Open
}

// IsBearish reports whether the candle closed below its open.
func (k *Kline) IsBearish() bool {
	return k.Close < k.Open
}

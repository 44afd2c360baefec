package indicators

import (
	"fmt"
	"math"
	"testing"
	"time"

	"smartMoneyBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func candle(i int, open, high, low, close, volume float64) *domain.Kline {
	return &domain.Kline{
		OpenTime: t0.Add(time.Duration(i) * 5 * time.Minute),
		Open:     open, High: high, Low: low, Close: close, Volume: volume,
	}
}

// valley builds closes 10,9,8,7,8,9,10,11 so the only pivot low is bar 3.
func valley() []*domain.Kline {
	prices := []float64{10, 9, 8, 7, 8, 9, 10, 11}
	out := make([]*domain.Kline, len(prices))
	for i, p := range prices {
		out[i] = candle(i, p, p+0.5, p-0.5, p, 10)
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SRLookback = 2
	cfg.VolumeSMAPeriod = 3
	return cfg
}

func TestCompute_EmptyAndShortInputs(t *testing.T) {
	f := Compute(nil, DefaultConfig())
	assert.Equal(t, 0, f.Len())
	bar, k := f.Last()
	assert.Nil(t, bar)
	assert.Nil(t, k)

	f = Compute(valley()[:3], DefaultConfig())
	require.Equal(t, 3, f.Len())
	last, _ := f.Last()
	assert.True(t, math.IsNaN(last.RSI))
	assert.True(t, math.IsNaN(last.ATR))
	assert.True(t, math.IsNaN(last.Support))
	assert.False(t, last.BullishOrderFlow)
}

func TestCompute_Deterministic(t *testing.T) {
	klines := valley()
	a := Compute(klines, testConfig())
	b := Compute(klines, testConfig())
	assert.Equal(t, fmt.Sprint(a.Bars), fmt.Sprint(b.Bars))
}

func TestComputeLevels_ForwardFill(t *testing.T) {
	f := Compute(valley(), testConfig())

	for i := 0; i < 3; i++ {
		assert.True(t, math.IsNaN(f.Bars[i].Support), "bar %d", i)
	}
	assert.True(t, f.Bars[3].IsSupportPivot)
	for i := 3; i < f.Len(); i++ {
		assert.Equal(t, 6.5, f.Bars[i].Support, "bar %d", i)
	}
	assert.InDelta(t, (7-6.5)/7.0, f.Bars[3].SupportDistance, 1e-12)
	assert.False(t, f.Bars[3].NearSupport)
	assert.True(t, math.IsNaN(f.Bars[7].Resistance))
}

func TestComputeLevels_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.UseKeyLevels = false
	cfg.UseLiquiditySweep = false
	f := Compute(valley(), cfg)
	assert.True(t, math.IsNaN(f.Bars[5].Support))
}

func TestComputeSweeps(t *testing.T) {
	klines := append(valley(), candle(8, 7, 7.3, 6.0, 7.2, 100))
	f := Compute(klines, testConfig())

	b := f.Bars[8]
	assert.True(t, b.BullishSweep)
	assert.False(t, b.BearishSweep)
	assert.InDelta(t, 100*(6.5-6.0)/6.5, b.SweepStrength, 1e-9)
	assert.True(t, b.SweepHunted)

	require.Len(t, f.Zones, 1)
	assert.Equal(t, 8, f.Zones[0].Index)
	assert.True(t, f.Zones[0].Bullish)
	assert.Equal(t, 6.5, f.Zones[0].Level)
}

func TestComputePatterns(t *testing.T) {
	tests := []struct {
		name  string
		prev  *domain.Kline
		cur   *domain.Kline
		check func(t *testing.T, b Bar)
	}{
		{
			name: "doji",
			cur:  candle(1, 10, 11, 9, 10.05, 1),
			check: func(t *testing.T, b Bar) {
				assert.True(t, b.Doji)
			},
		},
		{
			name: "hammer",
			cur:  candle(1, 10, 10.25, 9, 10.2, 1),
			check: func(t *testing.T, b Bar) {
				assert.True(t, b.Hammer)
				assert.False(t, b.ShootingStar)
				assert.False(t, b.Doji)
			},
		},
		{
			name: "shooting star",
			cur:  candle(1, 10.2, 11.25, 9.95, 10, 1),
			check: func(t *testing.T, b Bar) {
				assert.True(t, b.ShootingStar)
				assert.False(t, b.Hammer)
			},
		},
		{
			name: "bullish engulfing",
			prev: candle(0, 10, 10.1, 9.4, 9.5, 1),
			cur:  candle(1, 9.4, 10.3, 9.3, 10.2, 1),
			check: func(t *testing.T, b Bar) {
				assert.True(t, b.BullishEngulfing)
				assert.False(t, b.BearishEngulfing)
			},
		},
		{
			name: "bearish engulfing",
			prev: candle(0, 9.5, 10.1, 9.4, 10, 1),
			cur:  candle(1, 10.1, 10.2, 9.3, 9.4, 1),
			check: func(t *testing.T, b Bar) {
				assert.True(t, b.BearishEngulfing)
			},
		},
		{
			name: "zero range bar does not divide by zero",
			cur:  candle(1, 10, 10, 10, 10, 1),
			check: func(t *testing.T, b Bar) {
				assert.True(t, b.Doji)
				assert.False(t, b.Hammer)
				assert.False(t, b.ShootingStar)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := tt.prev
			if prev == nil {
				prev = candle(0, 10, 10.5, 9.5, 10, 1)
			}
			f := Compute([]*domain.Kline{prev, tt.cur}, DefaultConfig())
			tt.check(t, f.Bars[1])
		})
	}
}

func TestComputeOrderFlow(t *testing.T) {
	var klines []*domain.Kline
	for i := 0; i < 20; i++ {
		klines = append(klines, candle(i, 10, 10.5, 9.5, 10, 100))
	}
	for i := 20; i < 23; i++ {
		klines = append(klines, candle(i, 10, 11, 10, 11, 100))
	}
	f := Compute(klines, DefaultConfig())

	assert.Zero(t, f.Bars[0].Delta)
	assert.InDelta(t, 50, f.Bars[0].BuyingPressure, 1e-6)
	assert.InDelta(t, 50, f.Bars[0].SellingPressure, 1e-6)

	last := f.Bars[22]
	assert.Equal(t, 100.0, last.Delta)
	assert.Equal(t, 300.0, last.CumulativeDelta)
	assert.InDelta(t, 100, last.BuyingPressure, 1e-6)
	assert.True(t, last.BullishOrderFlow)
	assert.False(t, last.BearishOrderFlow)
	assert.False(t, f.Bars[19].BullishOrderFlow)
}

func TestComputeOrderFlow_SmartMoneyAbsorption(t *testing.T) {
	var klines []*domain.Kline
	for i := 0; i < 20; i++ {
		klines = append(klines, candle(i, 10, 11, 9, 10.8, 100))
	}
	// Heavy volume inside a narrow, nearly bodiless bar.
	klines = append(klines, candle(20, 10, 10.2, 9.9, 10.01, 400))
	f := Compute(klines, DefaultConfig())

	assert.True(t, f.Bars[20].SmartMoneyAbsorption)
	assert.False(t, f.Bars[19].SmartMoneyAbsorption)
}

func TestSessionAt(t *testing.T) {
	tests := []struct {
		hour int
		want Session
	}{
		{3, SessionAsian},
		{7, SessionLondon},
		{8, SessionLondon},
		{12, SessionLondon},
		{13, SessionNewYork},
		{16, SessionNewYork},
		{21, SessionNewYork},
		{22, SessionOff},
		{23, SessionOff},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%02d:00", tt.hour), func(t *testing.T) {
			ts := time.Date(2024, 1, 2, tt.hour, 30, 0, 0, time.UTC)
			assert.Equal(t, tt.want, SessionAt(ts))
		})
	}

	cfg := DefaultConfig()
	assert.Equal(t, 0.8, cfg.SessionMultiplier(SessionAsian))
	assert.Equal(t, 1.0, cfg.SessionMultiplier(SessionOff))
}

package indicators

import (
	"math"
	"time"

	"smartMoneyBot/internal/domain"
)

// Bar holds every derived value for one candle. Float fields are NaN and
// flags are false until their lookback window is filled.
type Bar struct {
	RSI            float64
	MACD           float64
	MACDSignal     float64
	MACDHistogram  float64
	ATR            float64
	VolumeSMA      float64
	VolumeAboveAvg bool

	// Key levels, forward-filled from the last confirmed pivot.
	Support            float64
	Resistance         float64
	IsSupportPivot     bool
	IsResistancePivot  bool
	SupportDistance    float64
	ResistanceDistance float64
	NearSupport        bool
	NearResistance     bool

	Doji             bool
	Hammer           bool
	ShootingStar     bool
	BullishEngulfing bool
	BearishEngulfing bool

	Delta                float64
	CumulativeDelta      float64
	BuyingPressure       float64
	SellingPressure      float64
	Absorption           float64
	SmartMoneyAbsorption bool
	BullishOrderFlow     bool
	BearishOrderFlow     bool

	BullishSweep  bool
	BearishSweep  bool
	SweepStrength float64
	SweepHunted   bool

	Session           Session
	SessionMultiplier float64
}

// LiquidityZone is a detected sweep, returned as a diagnostic.
type LiquidityZone struct {
	Index    int
	Time     time.Time
	Bullish  bool
	Level    float64
	Strength float64
	Hunted   bool
}

// Frame is the indicator table for a candle prefix. Bars[i] describes Klines[i].
// A Frame is never mutated after Compute returns.
type Frame struct {
	Klines []*domain.Kline
	Bars   []Bar
	Zones  []LiquidityZone
	Config Config
}

// Len returns the number of bars.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Bars)
}

// Last returns the latest bar and its candle, or nil when the frame is empty.
func (f *Frame) Last() (*Bar, *domain.Kline) {
	if f.Len() == 0 {
		return nil, nil
	}
	i := len(f.Bars) - 1
	return &f.Bars[i], f.Klines[i]
}

// Closes returns the close prices of the frame's candles.
func (f *Frame) Closes() []float64 {
	return closes(f.Klines)
}

// Volumes returns the volumes of the frame's candles.
func (f *Frame) Volumes() []float64 {
	out := make([]float64, len(f.Klines))
	for i, k := range f.Klines {
		out[i] = k.Volume
	}
	return out
}

// Compute runs every enabled indicator pass over klines. It is a pure function:
// identical input always yields an identical frame, and short inputs produce
// sentinel values rather than errors.
func Compute(klines []*domain.Kline, cfg Config) *Frame {
	n := len(klines)
	f := &Frame{
		Klines: klines,
		Bars:   make([]Bar, n),
		Config: cfg,
	}
	if n == 0 {
		return f
	}

	computeBase(f, cfg)
	if cfg.UseKeyLevels || cfg.UseLiquiditySweep {
		computeLevels(f, cfg.SRLookback, cfg.NearLevelPct)
	}
	if cfg.UsePatterns {
		computePatterns(f)
	}
	if cfg.UseOrderFlow {
		computeOrderFlow(f)
	}
	if cfg.UseLiquiditySweep {
		computeSweeps(f)
	}
	if cfg.UseSessions {
		tagSessions(f, cfg)
	} else {
		for i := range f.Bars {
			f.Bars[i].SessionMultiplier = 1.0
		}
	}
	return f
}

func computeBase(f *Frame, cfg Config) {
	rsi := NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: cfg.RSIPeriod}}).Series(f.Klines)
	macd := NewMACD(MACDConfig{Fast: cfg.MACDFast, Slow: cfg.MACDSlow, Signal: cfg.MACDSignal}).Compute(f.Klines)
	atr := NewATR(ATRConfig{IndicatorConfig: IndicatorConfig{Period: cfg.ATRPeriod}}).Series(f.Klines)
	volSMA := rollingMean(f.Volumes(), cfg.VolumeSMAPeriod)

	for i := range f.Bars {
		b := &f.Bars[i]
		b.RSI = rsi[i]
		b.MACD = macd.MACD[i]
		b.MACDSignal = macd.Signal[i]
		b.MACDHistogram = macd.Histogram[i]
		b.ATR = atr[i]
		b.VolumeSMA = volSMA[i]
		b.VolumeAboveAvg = !math.IsNaN(volSMA[i]) && f.Klines[i].Volume > volSMA[i]

		b.Support = math.NaN()
		b.Resistance = math.NaN()
		b.SupportDistance = math.NaN()
		b.ResistanceDistance = math.NaN()
	}
}

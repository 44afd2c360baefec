package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"smartMoneyBot/internal/adapters/binanceclient"
	"smartMoneyBot/internal/adapters/logger"
	"smartMoneyBot/internal/app"
	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/risk"
	"smartMoneyBot/internal/strategy"
	"smartMoneyBot/internal/strategy/backtesting"
	"smartMoneyBot/internal/strategy/indicators"
	"smartMoneyBot/internal/strategy/regime"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Market
	Symbol    string
	Timeframe string

	// Backtest
	InitialBalance      float64
	Commission          float64
	Slippage            float64
	MinPositionSize     float64
	FallbackPositionPct float64
	RiskPercentage      float64

	// Signal filters
	VolumeThreshold       float64
	LiquidityFactor       float64
	RiskRewardRatio       float64
	UseVolumeFilter       bool
	UseKeyLevels          bool
	UsePatternRecognition bool
	UseOrderFlow          bool
	UseLiquiditySweep     bool
	UseSessionTagging     bool

	// Indicators
	RSIPeriod       int
	RSIOverbought   float64
	RSIOversold     float64
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	ATRPeriod       int
	SRLookback      int
	VolumeSMAPeriod int

	// Stop placement
	StopLossBuffer         float64
	StopLossATRMultiplier  float64
	DefaultStopLossPercent float64

	// Sessions
	AsianSessionMultiplier   float64
	LondonSessionMultiplier  float64
	NewYorkSessionMultiplier float64

	// Regime
	TrendLookback      int
	VolatilityLookback int
	SidewaysThreshold  float64
	MarketMultipliers  map[domain.Regime]domain.Multipliers

	// Risk
	RiskPerTradePct    float64
	MaxDrawdownPct     float64
	MaxRiskPerDayPct   float64
	MaxTradesPerDay    int
	MaxPositionSizePct float64
	MinRiskRewardRatio float64
	Leverage           int
	MaxOpenPositions   int
	EnforceRiskLimits  bool

	// Runtime
	SweepWorkers int
	DBPath       string
	LogLevel     logger.LogLevel
	LogFormat    string
	PollInterval time.Duration
	CandleLimit  int
	ConfigFile   string

	// Warnings lists values that were invalid and replaced by their default.
	Warnings []string
}

// LoadConfig loads configuration from environment variables (.env file),
// layered over an optional YAML file named by CONFIG_FILE.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	l := &loader{}
	path := os.Getenv("CONFIG_FILE")
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading CONFIG_FILE %s: %v", ports.ErrConfigurationError, path, err)
		}
		if err := yaml.Unmarshal(data, &l.file); err != nil {
			return nil, fmt.Errorf("%w: parsing CONFIG_FILE %s: %v", ports.ErrConfigurationError, path, err)
		}
	}
	return l.load(path), nil
}

func (l *loader) load(path string) *Config {
	positive := func(v float64) bool { return v > 0 }
	nonNegative := func(v float64) bool { return v >= 0 }
	fraction := func(v float64) bool { return v >= 0 && v < 1 }
	percent := func(v float64) bool { return v > 0 && v <= 100 }
	atLeastOne := func(v int) bool { return v >= 1 }

	cfg := &Config{ConfigFile: path}

	// Binance API
	cfg.APIKey = l.getString("BINANCE_API_KEY", "")
	cfg.SecretKey = l.getString("BINANCE_API_SECRET", "")
	cfg.IsTestnet = l.getBool("IS_TESTNET", true) // Default to testnet for safety

	// Market
	cfg.Symbol = strings.ToUpper(l.getString("SYMBOL", "BTCUSDT"))
	tf := l.getString("TIMEFRAME", binanceclient.DefaultInterval)
	normalized, ok := binanceclient.NormalizeInterval(tf)
	if !ok {
		l.warn("TIMEFRAME %q is not supported, using %s", tf, normalized)
	}
	cfg.Timeframe = normalized

	// Backtest
	cfg.InitialBalance = l.getFloat("INITIAL_BALANCE", 10000, positive)
	cfg.Commission = l.getFloat("COMMISSION", 0.001, fraction)
	cfg.Slippage = l.getFloat("SLIPPAGE", 0.0005, fraction)
	cfg.MinPositionSize = l.getFloat("MIN_POSITION_SIZE", 0.001, nonNegative)
	cfg.FallbackPositionPct = l.getFloat("FALLBACK_POSITION_PCT", 10, percent)
	cfg.RiskPercentage = l.getFloat("RISK_PERCENTAGE", 2, percent)

	// Signal filters
	cfg.VolumeThreshold = l.getFloat("VOLUME_THRESHOLD", 100000, nonNegative)
	cfg.LiquidityFactor = l.getFloat("LIQUIDITY_FACTOR", 1.0, nonNegative)
	cfg.RiskRewardRatio = l.getFloat("RISK_REWARD_RATIO", 2.0, positive)
	cfg.UseVolumeFilter = l.getBool("USE_VOLUME_FILTER", true)
	cfg.UseKeyLevels = l.getBool("USE_KEY_LEVELS", true)
	cfg.UsePatternRecognition = l.getBool("USE_PATTERN_RECOGNITION", true)
	cfg.UseOrderFlow = l.getBool("USE_ORDER_FLOW", true)
	cfg.UseLiquiditySweep = l.getBool("USE_LIQUIDITY_SWEEP", true)
	cfg.UseSessionTagging = l.getBool("USE_SESSION_TAGGING", true)

	// Indicators
	cfg.RSIPeriod = l.getInt("RSI_PERIOD", 14, atLeastOne)
	cfg.RSIOverbought = l.getFloat("RSI_OVERBOUGHT", 70, percent)
	cfg.RSIOversold = l.getFloat("RSI_OVERSOLD", 30, nonNegative)
	if cfg.RSIOverbought <= cfg.RSIOversold {
		l.warn("RSI_OVERBOUGHT (%g) must exceed RSI_OVERSOLD (%g), using 70/30", cfg.RSIOverbought, cfg.RSIOversold)
		cfg.RSIOverbought, cfg.RSIOversold = 70, 30
	}
	cfg.MACDFast = l.getInt("MACD_FAST", 12, atLeastOne)
	cfg.MACDSlow = l.getInt("MACD_SLOW", 26, atLeastOne)
	if cfg.MACDFast >= cfg.MACDSlow {
		l.warn("MACD_FAST (%d) must be below MACD_SLOW (%d), using 12/26", cfg.MACDFast, cfg.MACDSlow)
		cfg.MACDFast, cfg.MACDSlow = 12, 26
	}
	cfg.MACDSignal = l.getInt("MACD_SIGNAL", 9, atLeastOne)
	cfg.ATRPeriod = l.getInt("ATR_PERIOD", 14, atLeastOne)
	cfg.SRLookback = l.getInt("SR_LOOKBACK", 10, atLeastOne)
	cfg.VolumeSMAPeriod = l.getInt("VOLUME_SMA_PERIOD", 20, atLeastOne)

	// Stop placement
	cfg.StopLossBuffer = l.getFloat("STOP_LOSS_BUFFER", 0.001, fraction)
	cfg.StopLossATRMultiplier = l.getFloat("STOP_LOSS_ATR_MULTIPLIER", 1.5, positive)
	cfg.DefaultStopLossPercent = l.getFloat("DEFAULT_STOP_LOSS_PERCENT", 0.02, func(v float64) bool { return v > 0 && v < 1 })

	// Sessions
	cfg.AsianSessionMultiplier = l.getFloat("ASIAN_SESSION_MULTIPLIER", 0.8, positive)
	cfg.LondonSessionMultiplier = l.getFloat("LONDON_SESSION_MULTIPLIER", 1.2, positive)
	cfg.NewYorkSessionMultiplier = l.getFloat("NEW_YORK_SESSION_MULTIPLIER", 1.2, positive)

	// Regime
	cfg.TrendLookback = l.getInt("TREND_LOOKBACK", 50, func(v int) bool { return v >= 2 })
	cfg.VolatilityLookback = l.getInt("VOLATILITY_LOOKBACK", 20, atLeastOne)
	cfg.SidewaysThreshold = l.getFloat("SIDEWAYS_THRESHOLD", 0.02, positive)
	cfg.MarketMultipliers = l.getMultipliers("MARKET_MULTIPLIERS")

	// Risk
	cfg.RiskPerTradePct = l.getFloat("RISK_PER_TRADE_PCT", 2, percent)
	cfg.MaxDrawdownPct = l.getFloat("MAX_DRAWDOWN_PCT", 20, percent)
	cfg.MaxRiskPerDayPct = l.getFloat("MAX_RISK_PER_DAY_PCT", 6, percent)
	cfg.MaxTradesPerDay = l.getInt("MAX_TRADES_PER_DAY", 10, atLeastOne)
	cfg.MaxPositionSizePct = l.getFloat("MAX_POSITION_SIZE_PCT", 50, percent)
	cfg.MinRiskRewardRatio = l.getFloat("MIN_RISK_REWARD_RATIO", 1.5, nonNegative)
	cfg.Leverage = l.getInt("LEVERAGE", 1, atLeastOne)
	cfg.MaxOpenPositions = l.getInt("MAX_OPEN_POSITIONS", 1, atLeastOne)
	cfg.EnforceRiskLimits = l.getBool("ENFORCE_RISK_LIMITS", false)

	// Runtime
	cfg.SweepWorkers = l.getInt("SWEEP_WORKERS", 4, atLeastOne)
	cfg.DBPath = l.getString("DB_PATH", "./data/smart_money.db")
	cfg.LogLevel = logger.ParseLevel(l.getString("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(l.getString("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		l.warn("LOG_FORMAT %q is not supported, using text", cfg.LogFormat)
		cfg.LogFormat = "text"
	}
	cfg.PollInterval = time.Duration(l.getInt("POLL_INTERVAL_SECONDS", 60, atLeastOne)) * time.Second
	cfg.CandleLimit = l.getInt("CANDLE_LIMIT", 500, func(v int) bool { return v >= 1 && v <= 1500 })

	cfg.Warnings = l.warnings
	return cfg
}

// --- Builders for component configuration ---

// Params returns the base signal parameters before any regime rescaling.
func (c *Config) Params() domain.Params {
	return domain.Params{
		VolumeThreshold: c.VolumeThreshold,
		RiskRewardRatio: c.RiskRewardRatio,
		LiquidityFactor: c.LiquidityFactor,
	}
}

// IndicatorConfig returns the indicator settings. Key levels are computed
// whenever the key-level or liquidity-sweep filter needs them.
func (c *Config) IndicatorConfig() indicators.Config {
	ic := indicators.DefaultConfig()
	ic.RSIPeriod = c.RSIPeriod
	ic.MACDFast = c.MACDFast
	ic.MACDSlow = c.MACDSlow
	ic.MACDSignal = c.MACDSignal
	ic.ATRPeriod = c.ATRPeriod
	ic.VolumeSMAPeriod = c.VolumeSMAPeriod
	ic.SRLookback = c.SRLookback
	ic.UseKeyLevels = c.UseKeyLevels || c.UseLiquiditySweep
	ic.UsePatterns = c.UsePatternRecognition
	ic.UseOrderFlow = c.UseOrderFlow
	ic.UseLiquiditySweep = c.UseLiquiditySweep
	ic.UseSessions = c.UseSessionTagging
	ic.AsianMultiplier = c.AsianSessionMultiplier
	ic.LondonMultiplier = c.LondonSessionMultiplier
	ic.NewYorkMultiplier = c.NewYorkSessionMultiplier
	return ic
}

func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		Filters: strategy.Filters{
			Volume:         c.UseVolumeFilter,
			KeyLevels:      c.UseKeyLevels,
			Pattern:        c.UsePatternRecognition,
			OrderFlow:      c.UseOrderFlow,
			LiquiditySweep: c.UseLiquiditySweep,
		},
		RSIOverbought:          c.RSIOverbought,
		RSIOversold:            c.RSIOversold,
		StopLossBuffer:         c.StopLossBuffer,
		StopLossATRMultiplier:  c.StopLossATRMultiplier,
		DefaultStopLossPercent: c.DefaultStopLossPercent,
	}
}

func (c *Config) RegimeConfig() regime.Config {
	return regime.Config{
		TrendLookback:      c.TrendLookback,
		VolatilityLookback: c.VolatilityLookback,
		SidewaysThreshold:  c.SidewaysThreshold,
		Multipliers:        c.MarketMultipliers,
	}
}

func (c *Config) RiskConfig() risk.RiskConfig {
	return risk.RiskConfig{
		InitialBalance:     c.InitialBalance,
		RiskPerTradePct:    c.RiskPerTradePct,
		MaxDrawdownPct:     c.MaxDrawdownPct,
		MaxRiskPerDayPct:   c.MaxRiskPerDayPct,
		MaxTradesPerDay:    c.MaxTradesPerDay,
		MaxPositionSizePct: c.MaxPositionSizePct,
		MinRiskRewardRatio: c.MinRiskRewardRatio,
		Leverage:           c.Leverage,
		MaxOpenPositions:   c.MaxOpenPositions,
	}
}

func (c *Config) BacktestConfig() backtesting.BacktestConfig {
	bc := backtesting.DefaultBacktestConfig()
	bc.Symbol = c.Symbol
	bc.InitialBalance = c.InitialBalance
	bc.Commission = c.Commission
	bc.Slippage = c.Slippage
	bc.RiskPercentage = c.RiskPercentage
	bc.MinPositionSize = c.MinPositionSize
	bc.FallbackPositionPct = c.FallbackPositionPct
	bc.Params = c.Params()
	bc.Indicators = c.IndicatorConfig()
	return bc
}

// Setup assembles the full backtest pipeline. The risk gate is attached
// only when ENFORCE_RISK_LIMITS is set.
func (c *Config) Setup() backtesting.Setup {
	rc := c.RegimeConfig()
	s := backtesting.Setup{
		Backtest: c.BacktestConfig(),
		Strategy: c.StrategyConfig(),
		Regime:   &rc,
	}
	if c.EnforceRiskLimits {
		limits := c.RiskConfig()
		s.Risk = &limits
	}
	return s
}

func (c *Config) MonitorConfig() app.MonitorConfig {
	return app.MonitorConfig{
		Symbol:       c.Symbol,
		Interval:     c.Timeframe,
		CandleLimit:  c.CandleLimit,
		PollInterval: c.PollInterval,
		Indicators:   c.IndicatorConfig(),
		Params:       c.Params(),
	}
}

// --- Value lookup: environment, then CONFIG_FILE, then default ---

type loader struct {
	file     map[string]interface{}
	warnings []string
}

func (l *loader) warn(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *loader) raw(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	if value, ok := l.file[key]; ok && value != nil {
		return fmt.Sprint(value), true
	}
	return "", false
}

func (l *loader) getString(key, defaultValue string) string {
	value, ok := l.raw(key)
	if !ok {
		return defaultValue
	}
	return value
}

func (l *loader) getInt(key string, defaultValue int, valid func(int) bool) int {
	valueStr, ok := l.raw(key)
	if !ok {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		l.warn("invalid integer value '%s' for key %s, using %d", valueStr, key, defaultValue)
		return defaultValue
	}
	if valid != nil && !valid(value) {
		l.warn("value %d for key %s is out of range, using %d", value, key, defaultValue)
		return defaultValue
	}
	return value
}

func (l *loader) getFloat(key string, defaultValue float64, valid func(float64) bool) float64 {
	valueStr, ok := l.raw(key)
	if !ok {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		l.warn("invalid float value '%s' for key %s, using %g", valueStr, key, defaultValue)
		return defaultValue
	}
	if valid != nil && !valid(value) {
		l.warn("value %g for key %s is out of range, using %g", value, key, defaultValue)
		return defaultValue
	}
	return value
}

func (l *loader) getBool(key string, defaultValue bool) bool {
	valueStr, ok := l.raw(key)
	if !ok {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		l.warn("invalid boolean value '%s' for key %s, using %t", valueStr, key, defaultValue)
		return defaultValue
	}
	return value
}

// getMultipliers overlays per-regime multipliers onto the built-in table.
// The environment value is inline YAML or JSON; the file value is a nested mapping.
func (l *loader) getMultipliers(key string) map[domain.Regime]domain.Multipliers {
	out := regime.DefaultMultipliers()

	var data []byte
	if value := os.Getenv(key); value != "" {
		data = []byte(value)
	} else if value, ok := l.file[key]; ok && value != nil {
		encoded, err := yaml.Marshal(value)
		if err != nil {
			l.warn("invalid %s: %v", key, err)
			return out
		}
		data = encoded
	} else {
		return out
	}

	var nodes map[string]yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		l.warn("invalid %s: %v", key, err)
		return out
	}
	for name, node := range nodes {
		r := domain.Regime(strings.ToLower(name))
		current, ok := out[r]
		if !ok {
			l.warn("unknown regime %q in %s", name, key)
			continue
		}
		if err := node.Decode(&current); err != nil {
			l.warn("invalid %s entry for %s: %v", key, name, err)
			continue
		}
		if current.VolumeThreshold <= 0 || current.RiskReward <= 0 || current.LiquidityFactor <= 0 {
			l.warn("%s multipliers for %s must be positive, keeping defaults", key, name)
			continue
		}
		out[r] = current
	}
	return out
}

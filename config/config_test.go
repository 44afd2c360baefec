package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartMoneyBot/internal/adapters/logger"
	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.Warnings)
	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "5m", cfg.Timeframe)
	assert.Equal(t, 10000.0, cfg.InitialBalance)
	assert.Equal(t, 0.001, cfg.Commission)
	assert.Equal(t, 0.0005, cfg.Slippage)
	assert.Equal(t, 100000.0, cfg.VolumeThreshold)
	assert.Equal(t, 2.0, cfg.RiskRewardRatio)
	assert.True(t, cfg.UseVolumeFilter)
	assert.True(t, cfg.UseSessionTagging)
	assert.Equal(t, 12, cfg.MACDFast)
	assert.Equal(t, 26, cfg.MACDSlow)
	assert.Equal(t, 50, cfg.TrendLookback)
	assert.Equal(t, 1, cfg.MaxOpenPositions)
	assert.False(t, cfg.EnforceRiskLimits)
	assert.True(t, cfg.IsTestnet)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 500, cfg.CandleLimit)
	assert.Equal(t, 0.8, cfg.MarketMultipliers[domain.RegimeBull].VolumeThreshold)

	setup := cfg.Setup()
	assert.Nil(t, setup.Risk, "risk gate is off unless enforced")
	require.NotNil(t, setup.Regime)
	assert.Equal(t, 50, setup.Regime.TrendLookback)
	assert.Equal(t, domain.Params{VolumeThreshold: 100000, RiskRewardRatio: 2, LiquidityFactor: 1}, setup.Backtest.Params)
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := writeConfigFile(t, `
SYMBOL: ethusdt
TIMEFRAME: 15m
RISK_REWARD_RATIO: 3
COMMISSION: 0.0004
USE_ORDER_FLOW: false
ENFORCE_RISK_LIMITS: true
MAX_TRADES_PER_DAY: 4
MARKET_MULTIPLIERS:
  bull:
    risk_reward_multiplier: 2
  sideways:
    volume_threshold_multiplier: 1.5
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RISK_REWARD_RATIO", "2.5")
	t.Setenv("INITIAL_BALANCE", "5000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings)

	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, "15m", cfg.Timeframe)
	assert.Equal(t, 2.5, cfg.RiskRewardRatio, "environment wins over the file")
	assert.Equal(t, 0.0004, cfg.Commission)
	assert.False(t, cfg.UseOrderFlow)

	bull := cfg.MarketMultipliers[domain.RegimeBull]
	assert.Equal(t, 2.0, bull.RiskReward)
	assert.Equal(t, 0.8, bull.VolumeThreshold, "unspecified multipliers keep their default")
	assert.Equal(t, 1.5, cfg.MarketMultipliers[domain.RegimeSideways].VolumeThreshold)

	setup := cfg.Setup()
	require.NotNil(t, setup.Risk)
	assert.Equal(t, 5000.0, setup.Risk.InitialBalance)
	assert.Equal(t, 4, setup.Risk.MaxTradesPerDay)
	assert.False(t, setup.Strategy.Filters.OrderFlow)
	assert.False(t, setup.Backtest.Indicators.UseOrderFlow)

	mc := cfg.MonitorConfig()
	assert.Equal(t, "ETHUSDT", mc.Symbol)
	assert.Equal(t, "15m", mc.Interval)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TIMEFRAME", "7m")
	t.Setenv("COMMISSION", "abc")
	t.Setenv("MACD_FAST", "30")
	t.Setenv("RISK_PERCENTAGE", "-1")
	t.Setenv("USE_KEY_LEVELS", "maybe")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("MARKET_MULTIPLIERS", `{"crab": {"risk_reward_multiplier": 2}, "bear": {"risk_reward_multiplier": 0}}`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5m", cfg.Timeframe)
	assert.Equal(t, 0.001, cfg.Commission)
	assert.Equal(t, 12, cfg.MACDFast)
	assert.Equal(t, 26, cfg.MACDSlow)
	assert.Equal(t, 2.0, cfg.RiskPercentage)
	assert.True(t, cfg.UseKeyLevels)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 1.2, cfg.MarketMultipliers[domain.RegimeBear].RiskReward)
	assert.Len(t, cfg.Warnings, 8)
}

func TestLoadConfig_BadConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	t.Setenv("CONFIG_FILE", writeConfigFile(t, "SYMBOL: [unterminated"))
	_, err = LoadConfig()
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestIndicatorConfig_SweepNeedsKeyLevels(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("USE_KEY_LEVELS", "false")
	t.Setenv("USE_LIQUIDITY_SWEEP", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	ic := cfg.IndicatorConfig()
	assert.True(t, ic.UseKeyLevels)
	assert.True(t, ic.UseLiquiditySweep)
	assert.False(t, cfg.StrategyConfig().Filters.KeyLevels)
}

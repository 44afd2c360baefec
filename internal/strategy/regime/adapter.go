package regime

import (
	"context"
	"fmt"

	"smartMoneyBot/internal/domain"
	"smartMoneyBot/internal/ports"
	"smartMoneyBot/internal/strategy/indicators"
)

// Adapter decorates any SignalGenerator: it classifies the regime, hands the
// wrapped generator rescaled parameters, then vetoes weak entries.
type Adapter struct {
	inner  ports.SignalGenerator
	cfg    Config
	logger ports.Logger
}

var _ ports.SignalGenerator = (*Adapter)(nil)

// NewAdapter wraps inner with regime awareness.
func NewAdapter(inner ports.SignalGenerator, cfg Config, logger ports.Logger) (*Adapter, error) {
	if inner == nil {
		return nil, fmt.Errorf("signal generator is required for regime adapter")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for regime adapter")
	}
	if cfg.TrendLookback < 2 || cfg.VolatilityLookback < 1 {
		return nil, fmt.Errorf("regime lookbacks must be positive (trend >= 2)")
	}
	if cfg.SidewaysThreshold <= 0 {
		return nil, fmt.Errorf("sideways threshold must be positive")
	}
	if cfg.Multipliers == nil {
		cfg.Multipliers = DefaultMultipliers()
	}
	return &Adapter{inner: inner, cfg: cfg, logger: logger}, nil
}

// GenerateSignal implements ports.SignalGenerator.
func (a *Adapter) GenerateSignal(ctx context.Context, frame *indicators.Frame, position *domain.Position, params domain.Params) domain.Signal {
	det := Detect(frame, a.cfg)
	adjusted := a.cfg.AdjustParameters(params, det.Regime, det.Confidence)

	sig := a.inner.GenerateSignal(ctx, frame, position, adjusted)
	info := &domain.RegimeInfo{Regime: det.Regime, Confidence: det.Confidence, Params: adjusted}

	if _, k := frame.Last(); k != nil {
		sig = applyVeto(sig, k.Volume, info)
	}
	sig.Metadata.Regime = info

	if info.Vetoed {
		a.logger.Debug(ctx, "Signal vetoed by regime filter", map[string]interface{}{
			"regime":     string(det.Regime),
			"confidence": det.Confidence,
			"action":     string(info.OriginalAction),
			"reason":     info.VetoReason,
		})
	}
	return sig
}

// vetoFilters must all pass for an entry taken at very low confidence.
var vetoFilters = []string{domain.FilterVolume, domain.FilterKeyLevels, domain.FilterPattern}

// applyVeto cancels an entry to HOLD when the bar's volume is below the
// regime-adjusted threshold, or when confidence is under 0.3 and any of the
// volume, key-level and pattern filters did not pass for the entry side.
// A disabled filter counts as not passed.
func applyVeto(sig domain.Signal, volume float64, info *domain.RegimeInfo) domain.Signal {
	if !sig.Action.IsEntry() {
		return sig
	}

	reason := ""
	if volume < info.Params.VolumeThreshold {
		reason = "volume below regime threshold"
	} else if info.Confidence < 0.3 {
		for _, name := range vetoFilters {
			r, ok := sig.Metadata.Filters[name]
			passed := ok && ((sig.Action == domain.ActionBuy && r.Buy) || (sig.Action == domain.ActionSell && r.Sell))
			if !passed {
				reason = "low confidence without " + name + " confirmation"
				break
			}
		}
	}
	if reason == "" {
		return sig
	}

	info.Vetoed = true
	info.VetoReason = reason
	info.OriginalAction = sig.Action
	return domain.Hold(sig.EntryPrice, sig.Metadata)
}

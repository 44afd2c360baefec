package indicators

// Config selects and parameterises every indicator pass.
type Config struct {
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	ATRPeriod       int
	VolumeSMAPeriod int

	SRLookback   int     // Bars on each side a pivot must dominate
	NearLevelPct float64 // Fractional distance counted as "near" a level

	UseKeyLevels      bool
	UsePatterns       bool
	UseOrderFlow      bool
	UseLiquiditySweep bool
	UseSessions       bool

	AsianMultiplier   float64
	LondonMultiplier  float64
	NewYorkMultiplier float64
}

// DefaultConfig returns the documented defaults with every pass enabled.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:         14,
		MACDFast:          12,
		MACDSlow:          26,
		MACDSignal:        9,
		ATRPeriod:         14,
		VolumeSMAPeriod:   20,
		SRLookback:        10,
		NearLevelPct:      0.005,
		UseKeyLevels:      true,
		UsePatterns:       true,
		UseOrderFlow:      true,
		UseLiquiditySweep: true,
		UseSessions:       true,
		AsianMultiplier:   0.8,
		LondonMultiplier:  1.2,
		NewYorkMultiplier: 1.2,
	}
}

package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio_JSON(t *testing.T) {
	tests := []struct {
		name    string
		value   Ratio
		encoded string
	}{
		{name: "finite", value: 1.5, encoded: "1.5"},
		{name: "positive infinity", value: Ratio(math.Inf(1)), encoded: `"Infinity"`},
		{name: "negative infinity", value: Ratio(math.Inf(-1)), encoded: `"-Infinity"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.encoded, string(data))

			var decoded Ratio
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, float64(tt.value), float64(decoded))
		})
	}

	data, err := json.Marshal(Ratio(math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestCloseTrade(t *testing.T) {
	entry := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		pos       Position
		exit      float64
		wantGross float64
		wantNet   float64
	}{
		{
			name:      "long winner",
			pos:       Position{Direction: Long, EntryPrice: 100, Size: 2, EntryCommission: 0.2},
			exit:      110,
			wantGross: 20,
			wantNet:   20 - 0.2 - 0.22,
		},
		{
			name:      "short winner",
			pos:       Position{Direction: Short, EntryPrice: 100, Size: 2, EntryCommission: 0.2},
			exit:      90,
			wantGross: 20,
			wantNet:   20 - 0.2 - 0.22,
		},
		{
			name:      "long loser",
			pos:       Position{Direction: Long, EntryPrice: 100, Size: 1, EntryCommission: 0.1},
			exit:      95,
			wantGross: -5,
			wantNet:   -5 - 0.1 - 0.22,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := CloseTrade(&tt.pos, tt.exit, entry.Add(time.Hour), 0.22, ExitSignal)
			assert.InDelta(t, tt.wantGross, tr.GrossProfit, 1e-9)
			assert.InDelta(t, tt.wantNet, tr.NetProfit, 1e-9)
			assert.Equal(t, ExitSignal, tr.ExitReason)
		})
	}
}

func TestPosition_Triggers(t *testing.T) {
	long := &Position{Direction: Long, EntryPrice: 100, StopLoss: 95, TakeProfit: 110}
	assert.True(t, long.StopHit(101, 95))
	assert.False(t, long.StopHit(101, 95.5))
	assert.True(t, long.TargetHit(110, 99))

	short := &Position{Direction: Short, EntryPrice: 100, StopLoss: 105}
	assert.True(t, short.StopHit(105, 99))
	assert.False(t, short.TargetHit(100, 1), "no target set")

	var none *Position
	assert.Zero(t, none.UnrealizedPNL(123))
}

package indicators

import (
	"context"
	"math"
	"testing"
	"time"

	"smartMoneyBot/internal/domain"
)

func closesAt(values ...float64) []*domain.Kline {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]*domain.Kline, len(values))
	for i, v := range values {
		klines[i] = &domain.Kline{OpenTime: t0.Add(time.Duration(i) * 5 * time.Minute), Open: v, High: v, Low: v, Close: v}
	}
	return klines
}

func TestMovingAverage_Series(t *testing.T) {
	klines := closesAt(100, 102, 101, 103, 104)

	tests := []struct {
		name string
		typ  MovingAverageType
		want []float64
	}{
		{
			name: "SMA warms up over the period",
			typ:  SimpleMovingAverage,
			want: []float64{math.NaN(), math.NaN(), 101, 102, 102.666667},
		},
		{
			name: "EMA seeds with the first simple average",
			typ:  ExponentialMovingAverage,
			want: []float64{math.NaN(), math.NaN(), 101, 102, 103},
		},
		{
			name: "unknown type yields no values",
			typ:  "WMA",
			want: []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma := NewMovingAverage(MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 3}, Type: tt.typ})
			got := ma.Series(klines)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d values, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if math.IsNaN(tt.want[i]) {
					if !math.IsNaN(got[i]) {
						t.Errorf("bar %d: expected NaN, got %f", i, got[i])
					}
					continue
				}
				if math.Abs(got[i]-tt.want[i]) > 1e-4 {
					t.Errorf("bar %d: expected %f, got %f", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestMovingAverage_Calculate(t *testing.T) {
	klines := closesAt(100, 102, 101, 103, 104)

	sma := NewMovingAverage(MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 5}, Type: SimpleMovingAverage})
	value, err := sma.Calculate(context.Background(), klines)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(value-102) > 1e-9 {
		t.Errorf("Expected 102, got %f", value)
	}
	if sma.Name() != "SMA" || sma.RequiredDataPoints() != 5 {
		t.Errorf("Unexpected name %s or required points %d", sma.Name(), sma.RequiredDataPoints())
	}

	short := NewMovingAverage(MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 6}, Type: SimpleMovingAverage})
	if _, err := short.Calculate(context.Background(), klines); err == nil {
		t.Error("Expected an error when history is shorter than the period")
	}

	invalid := NewMovingAverage(MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 3}, Type: "WMA"})
	if _, err := invalid.Calculate(context.Background(), klines); err == nil {
		t.Error("Expected an error for an unsupported type")
	}
}

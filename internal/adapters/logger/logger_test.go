package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestStdLogger_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerTo(&buf, LevelInfo)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "Position opened", map[string]interface{}{"size": 2, "entry": 100.5})
	l.Error(ctx, errors.New("boom"), "Save failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] Position opened | entry=100.5 size=2")
	assert.Contains(t, out, "[ERROR] Save failed | error: boom")
}

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLoggerFrom(zap.New(core))
	ctx := context.Background()

	l.Info(ctx, "Backtest finished", map[string]interface{}{"trades": 3})
	l.Error(ctx, errors.New("boom"), "Save failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Backtest finished", entries[0].Message)
	assert.EqualValues(t, 3, entries[0].ContextMap()["trades"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestNew(t *testing.T) {
	l, err := New("text", "debug")
	require.NoError(t, err)
	assert.IsType(t, &StdLogger{}, l)

	l, err = New("JSON", "warn")
	require.NoError(t, err)
	assert.IsType(t, &ZapLogger{}, l)
}

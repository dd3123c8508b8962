package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := New(tt.level, "console")
			if !logger.Core().Enabled(tt.enabled) {
				t.Errorf("expected %s to be enabled", tt.enabled)
			}
			if logger.Core().Enabled(tt.off) {
				t.Errorf("expected %s to be disabled", tt.off)
			}
		})
	}
}

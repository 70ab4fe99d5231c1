package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It discards everything until Init is called,
// so packages can log unconditionally from tests.
var Log = zap.NewNop()

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Init builds the development console logger used by both binaries.
func Init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	built, err := cfg.Build()
	if err != nil {
		fmt.Printf("logger: falling back to production config: %v\n", err)
		built, _ = zap.NewProduction()
	}
	Log = built
}

// SetLevel changes the minimum level at runtime ("debug", "info", "warn", "error").
func SetLevel(name string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("logger: unknown level %q: %w", name, err)
	}
	level.SetLevel(l)
	return nil
}

// Sync flushes buffered entries. Errors from syncing stdout are ignored.
func Sync() {
	_ = Log.Sync()
}

package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide structured logger. It is a no-op logger until Init
// is called so packages can log unconditionally, including from tests.
var Log = zap.NewNop()

// Init builds the development logger used by the viewer. Debug lowers the
// level so per-frame and load-progress events become visible.
func Init(debug bool) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		// Keep the no-op logger, there is nowhere to report this
		return
	}
	Log = l
}

// Sync flushes buffered entries. Errors from syncing stderr on some
// platforms are expected and ignored.
func Sync() {
	_ = Log.Sync()
}

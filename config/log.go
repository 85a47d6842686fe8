package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable notepilot reads.
const EnvPrefix = "NOTEPILOT_"

var Debug = false

// Log is the process-wide logger. It discards everything until
// InitDebugLog enables the debug file.
var Log = zap.NewNop().Sugar()

func CheckDebug() bool {
	debug := os.Getenv(EnvPrefix + "DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog points Log at <dataDir>/debug.log when NOTEPILOT_DEBUG is set.
// The returned func flushes and closes the file.
func InitDebugLog(dataDir string) func() {
	if !CheckDebug() {
		return func() {}
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// Create debug log with secure permissions (0600 - may contain note text)
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return func() {}
	}

	Debug = true
	SetLogger(newFileLogger(f))
	Log.Infof("=== Debug logging started (%sDEBUG=%s) ===", EnvPrefix, os.Getenv(EnvPrefix+"DEBUG"))
	Log.Infof("Log path: %s", logPath)

	return func() {
		_ = Log.Sync()
		_ = f.Close()
	}
}

func newFileLogger(f *os.File) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(f),
		zap.NewAtomicLevelAt(zapcore.DebugLevel),
	)
	return zap.New(core, zap.AddCaller())
}

// SetLogger replaces Log. A nil logger restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		Log = zap.NewNop().Sugar()
		return
	}
	Log = l.Sugar()
}

package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	base  = zap.NewNop()
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the global JSON logger at the given level. Unknown level
// strings fall back to info rather than failing startup.
func Init(levelText string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(levelText)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	level.SetLevel(lvl)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	mu.Lock()
	base = zap.New(core, zap.AddCaller())
	mu.Unlock()
	return nil
}

// Logger returns the process-wide logger. Before Init it is a nop logger,
// so packages may log during early startup without a nil check.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes any buffered entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule names the subsystem a child logger reports for.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Info logs at info level on the global logger.
func Info(msg string, fields ...zap.Field) { Logger().Info(msg, fields...) }

// Warn logs at warn level on the global logger.
func Warn(msg string, fields ...zap.Field) { Logger().Warn(msg, fields...) }

// Error logs at error level on the global logger.
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }

// Debug logs at debug level on the global logger.
func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }

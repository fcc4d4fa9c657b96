package js_interop

import (
	"sync"

	"go.uber.org/zap"
)

var (
	zapLogger  *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the js_interop package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if zapLogger == nil {
			zapLogger = zap.NewNop()
		}
	})
	return zapLogger
}

// SetLogger configures the js_interop package's logger.
// This must be called before any js_interop operations.
func SetLogger(l *zap.Logger) {
	zapLogger = l
}

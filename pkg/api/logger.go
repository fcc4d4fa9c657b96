package api

import (
	"sync"

	"go.uber.org/zap"

	"github.com/esdown/esdown/internal/js_interop"
	"github.com/esdown/esdown/internal/js_lower"
)

var (
	zapLogger  *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the api package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if zapLogger == nil {
			zapLogger = zap.NewNop()
		}
	})
	return zapLogger
}

// SetLogger configures the logger used for debug tracing by this package and
// by the compiler passes it runs. This must be called before Build or
// Transform.
func SetLogger(l *zap.Logger) {
	zapLogger = l
	js_lower.SetLogger(l.Named("lower"))
	js_interop.SetLogger(l.Named("interop"))
}

package bridge

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the default session logger, a no-op logger unless SetLogger
// was called. WithLogger overrides it per session.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the default session logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

package tilegrid

import (
	"sync"

	"go.uber.org/zap"
)

// The library is silent by default. Hosts that want visibility into
// autotuning and launch decisions install a logger with SetLogger.
var (
	logMu  sync.RWMutex
	logger = zap.NewNop()
)

// SetLogger installs the logger used for library events. Passing nil
// restores the no-op logger.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// log returns the current logger.
func log() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

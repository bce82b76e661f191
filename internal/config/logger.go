package config

import "go.uber.org/zap"

var globalLogger *zap.Logger

// InitLogger builds the process-wide structured logger.
func InitLogger(production bool) (*zap.Logger, error) {
	var zcfg zap.Config
	if production {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	globalLogger = logger
	return logger, nil
}

// GetLogger returns the global logger, initializing a development fallback
// if InitLogger was never called.
func GetLogger() *zap.Logger {
	if globalLogger == nil {
		globalLogger, _ = zap.NewDevelopment()
	}
	return globalLogger
}

// Cleanup flushes buffered log entries.
func Cleanup() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

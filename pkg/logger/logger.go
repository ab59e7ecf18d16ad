package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger = zap.NewNop()
	mu     sync.RWMutex
)

// Config holds logger configuration
type Config struct {
	// Environment selects the encoder: "production" emits JSON, anything
	// else emits console output.
	Environment string
	// Level is the minimum level to emit ("debug", "info", "warn", "error")
	Level string
}

// Init builds the global logger and returns it
func Init(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &Config{Environment: "development", Level: "info"}
	}

	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	log, err := zapCfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return nil, err
	}

	mu.Lock()
	global = log
	mu.Unlock()

	return log, nil
}

// Get returns the global logger. Before Init it returns a no-op logger.
func Get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered log entries
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return global.Sync()
}

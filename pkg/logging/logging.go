// Package logging builds the structured logger threaded through every
// subsystem, the way ignite's internal packages take a *zap.SugaredLogger
// in their Config structs. When a log file path is configured, output is
// rotated through lumberjack instead of growing a single file forever.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how log output is written.
type Config struct {
	// Service names the component emitting logs (e.g. "statekeeper", "eventlog").
	Service string

	// FilePath, if set, routes output through a rotating lumberjack writer
	// instead of stderr.
	FilePath string

	// MaxSizeMB is the size in megabytes a log file grows to before rotation.
	MaxSizeMB int

	// MaxBackups is how many rotated files are retained.
	MaxBackups int

	// MaxAgeDays is how long a rotated file is retained.
	MaxAgeDays int

	// Development enables human-readable, more verbose output.
	Development bool
}

// New builds a *zap.SugaredLogger for the given configuration. A zero-value
// Config produces a stderr console logger at Info level.
func New(cfg Config) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var core zapcore.Core
	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}

	if cfg.FilePath != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 64),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(writer), level)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), level)
	}

	logger := zap.New(core)
	if cfg.Service != "" {
		logger = logger.Named(cfg.Service)
	}
	return logger.Sugar()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

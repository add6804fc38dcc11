// Package observability wires up application logging.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger for CLI commands. Initialized by
// InitCLILogger before any command runs; Nop until then so packages can log
// unconditionally.
var CLILogger = zap.NewNop()

// InitCLILogger initializes the CLI logger writing console output to stderr.
// Verbose drops the level to debug.
func InitCLILogger(serviceName string, verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	CLILogger = zap.New(core).Named(serviceName)
}

// SetLevel rebuilds the CLI logger with an explicit level string
// (debug, info, warn, error). Unknown levels keep info.
func SetLevel(serviceName, levelStr string) {
	level := ParseLevel(levelStr)

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	CLILogger = zap.New(core).Named(serviceName)
}

// ParseLevel converts a config level string to a zap level.
func ParseLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case "debug", "trace":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

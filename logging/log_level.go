package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// ParseLogLevelString maps debug, info, warn (or warning), error and fatal,
// case-insensitively, to a zap level. Anything else yields defaultLevel.
func ParseLogLevelString(levelStr string, defaultLevel zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return defaultLevel
	}
}

// LevelFor picks the configured level, falling back to debug in dev mode and
// info otherwise.
func LevelFor(levelStr string, isDev bool) zapcore.Level {
	def := zapcore.InfoLevel
	if isDev {
		def = zapcore.DebugLevel
	}
	return ParseLogLevelString(levelStr, def)
}

package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// JSON keys used in log output.
const (
	FieldTimestamp  = "timestamp"
	FieldLevel      = "level"
	FieldSource     = "source"
	FieldMessage    = "message"
	FieldStacktrace = "stacktrace"
	FieldCaller     = "caller"
)

// NewEncoderConfig returns the encoder config used for the log file and for
// production console output: ISO8601 timestamps, lowercase levels, logger
// name under "source".
func NewEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        FieldTimestamp,
		LevelKey:       FieldLevel,
		NameKey:        FieldSource,
		CallerKey:      FieldCaller,
		MessageKey:     FieldMessage,
		StacktraceKey:  FieldStacktrace,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewConsoleEncoderConfig is the human-readable variant used in dev mode.
func NewConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := NewEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = shortTimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// shortTimeEncoder: 15:04:05.000
func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}

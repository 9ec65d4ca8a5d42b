// Package logging builds the process logger: zap, teed to the console and a
// rotating JSON log file.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger and strips URL credentials from string fields.
// Components receive the underlying *zap.Logger via Zap.
//
//	logger, err := logging.NewLogger(cfg.DevMode, cfg.LogFile, cfg.LogLevel)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
type Logger struct {
	zap           *zap.Logger
	isDevelopment bool
	logFilePath   string
}

// NewLogger creates a Logger writing to stdout and logFilePath. levelStr
// overrides the default level (debug in dev mode, info otherwise).
func NewLogger(isDevelopment bool, logFilePath, levelStr string) (*Logger, error) {
	level := LevelFor(levelStr, isDevelopment)
	core, err := NewMultiCore(level, logFilePath, isDevelopment)
	if err != nil {
		return nil, fmt.Errorf("failed to create log core: %w", err)
	}
	return newLogger(core, isDevelopment, logFilePath), nil
}

// NewLoggerWithWriters is NewLogger with caller-supplied outputs.
func NewLoggerWithWriters(level zapcore.Level, console, file zapcore.WriteSyncer, isDevelopment bool) *Logger {
	return newLogger(NewMultiCoreWithWriters(level, console, file, isDevelopment), isDevelopment, "")
}

func newLogger(core zapcore.Core, isDev bool, path string) *Logger {
	return &Logger{
		zap:           zap.New(&redactingCore{Core: core}, zap.AddCaller()),
		isDevelopment: isDev,
		logFilePath:   path,
	}
}

// Zap returns the underlying logger.
func (l *Logger) Zap() *zap.Logger { return l.zap }

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), isDevelopment: l.isDevelopment, logFilePath: l.logFilePath}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...), isDevelopment: l.isDevelopment, logFilePath: l.logFilePath}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Sync flushes buffered entries. Call before exit.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) IsDevelopment() bool  { return l.isDevelopment }
func (l *Logger) LogFilePath() string { return l.logFilePath }

// redactingCore rewrites string fields before they reach the encoders, so
// child loggers handed out through Zap are covered too.
type redactingCore struct {
	zapcore.Core
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	out := fields
	copied := false
	for i, f := range fields {
		r, changed := redactField(f)
		if !changed {
			continue
		}
		if !copied {
			out = append([]zapcore.Field(nil), fields...)
			copied = true
		}
		out[i] = r
	}
	return out
}

func redactField(f zapcore.Field) (zapcore.Field, bool) {
	if IsSensitiveField(f.Key) {
		return zap.String(f.Key, RedactedPlaceholder), true
	}
	if f.Type == zapcore.StringType {
		if r := RedactURLCredentials(f.String); r != f.String {
			return zap.String(f.Key, r), true
		}
	}
	return f, false
}

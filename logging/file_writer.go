package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the log file.
const (
	DefaultMaxSizeMB  = 20
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 14
	DefaultCompress   = true
)

// FileWriterConfig controls log file rotation. Zero sizes and counts fall
// back to the defaults.
type FileWriterConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	LocalTime  bool
}

// DefaultFileWriterConfig returns the rotation settings used by NewFileWriter.
func DefaultFileWriterConfig() FileWriterConfig {
	return FileWriterConfig{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   DefaultCompress,
	}
}

// NewFileWriter returns a rotating WriteSyncer for path.
func NewFileWriter(path string) zapcore.WriteSyncer {
	return NewFileWriterWithConfig(path, DefaultFileWriterConfig())
}

// NewFileWriterWithConfig returns a rotating WriteSyncer for path using cfg.
// The file is opened lazily on first write.
func NewFileWriterWithConfig(path string, cfg FileWriterConfig) zapcore.WriteSyncer {
	cfg = applyFileWriterDefaults(cfg)
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	})
}

// Compress is left as given: false cannot be told apart from unset.
func applyFileWriterDefaults(cfg FileWriterConfig) FileWriterConfig {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = DefaultMaxAgeDays
	}
	return cfg
}

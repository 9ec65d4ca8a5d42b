package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
)

// NewMultiCore tees stdout and a rotating log file at filePath. The file is
// always JSON; the console is colored text in dev mode and JSON otherwise.
// The log directory is created if needed so that a bad path fails here
// rather than on the first write.
func NewMultiCore(level zapcore.Level, filePath string, isDev bool) (zapcore.Core, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	return NewMultiCoreWithWriters(level, zapcore.Lock(os.Stdout), NewFileWriter(filePath), isDev), nil
}

// NewMultiCoreWithWriters is NewMultiCore with caller-supplied writers.
func NewMultiCoreWithWriters(level zapcore.Level, console, file zapcore.WriteSyncer, isDev bool) zapcore.Core {
	consoleEncoder := zapcore.NewJSONEncoder(NewEncoderConfig())
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	}
	return zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, console, level),
		zapcore.NewCore(zapcore.NewJSONEncoder(NewEncoderConfig()), file, level),
	)
}

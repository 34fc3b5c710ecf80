// Package logging builds the run logger: a readable console log on stderr
// plus a JSON log file that becomes the run's .log artifact.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunLog is a logger tee'd to stderr and the run's log file.
type RunLog struct {
	Logger *zap.Logger
	Path   string

	file *os.File
}

// New opens (or creates) the log file at path and builds the tee'd logger.
// verbose lowers the threshold to debug on both sinks.
func New(path string, verbose bool) (*RunLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	level := threshold(verbose)
	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), level)

	logger := zap.New(zapcore.NewTee(consoleCore(level), fileCore))
	return &RunLog{Logger: logger, Path: path, file: file}, nil
}

// Console builds a stderr-only logger for paths where the log file itself
// cannot be opened.
func Console(verbose bool) *zap.Logger {
	return zap.New(consoleCore(threshold(verbose)))
}

func threshold(verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func consoleCore(level zapcore.Level) zapcore.Core {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), level)
}

// Close flushes buffered entries and closes the log file. Sync failures on
// stderr are not reportable and are dropped.
func (l *RunLog) Close() error {
	_ = l.Logger.Sync()
	return l.file.Close()
}

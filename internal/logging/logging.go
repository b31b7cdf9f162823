// Package logging builds the process logger: a zap console core on stderr
// plus an optional rotated JSON file.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB = 10
	maxBackups       = 3
)

type Options struct {
	// Verbose lowers the console level from error to info.
	Verbose bool

	// File, when set, receives every info-and-above entry as JSON.
	File      string
	MaxSizeMB int

	// Output defaults to os.Stderr.
	Output io.Writer
}

// Logger is a printf-style facade over a zap sugared logger.
type Logger struct {
	sugar *zap.SugaredLogger
	file  *lumberjack.Logger
}

func New(opts Options) (*Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := zapcore.ErrorLevel
	if opts.Verbose {
		level = zapcore.InfoLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(out), level),
	}

	var file *lumberjack.Logger
	if opts.File != "" {
		size := opts.MaxSizeMB
		if size <= 0 {
			size = DefaultMaxSizeMB
		}
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    size,
			MaxBackups: maxBackups,
			Compress:   true,
		}
		// Open eagerly so a bad path fails at startup, not on the first entry.
		if _, err := file.Write(nil); err != nil {
			return nil, err
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), zapcore.InfoLevel))
	}

	return &Logger{
		sugar: zap.New(zapcore.NewTee(cores...)).Sugar(),
		file:  file,
	}, nil
}

func (l *Logger) Info(format string, args ...any) { l.sugar.Infof(format, args...) }

func (l *Logger) Error(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries. Errors from syncing a terminal are expected
// and ignored by callers.
func (l *Logger) Sync() error { return l.sugar.Sync() }

// Close flushes and releases the log file, if any.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

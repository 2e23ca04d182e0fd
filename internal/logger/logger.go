// Package logger builds the zap logger used by the pipeline: a console
// encoder on stderr teed with a JSON encoder on the pipeline log file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger at level (debug, info, warn, error). When logFile is
// not empty, entries are also appended to that file as JSON.
func New(level, logFile string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), lvl),
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), lvl))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// Printf adapts a zap logger to printf-style Debug/Info/Warn/Error calls.
type Printf struct {
	s *zap.SugaredLogger
}

// NewPrintf wraps l.
func NewPrintf(l *zap.Logger) *Printf {
	return &Printf{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (p *Printf) Debug(msg string, args ...interface{}) { p.s.Debugf(msg, args...) }
func (p *Printf) Info(msg string, args ...interface{})  { p.s.Infof(msg, args...) }
func (p *Printf) Warn(msg string, args ...interface{})  { p.s.Warnf(msg, args...) }
func (p *Printf) Error(msg string, args ...interface{}) { p.s.Errorf(msg, args...) }

// With returns a Printf that adds the key/value pairs to every entry.
func (p *Printf) With(args ...interface{}) *Printf {
	return &Printf{s: p.s.With(args...)}
}

// Sync flushes buffered entries.
func (p *Printf) Sync() error {
	return p.s.Sync()
}

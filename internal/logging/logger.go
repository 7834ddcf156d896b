// Package logging provides the structured logger threaded through every
// relay component. No component reaches for a package-level global logger;
// one Logger is built at process start in cmd/relay and passed down through
// constructors.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging contract every relay component depends on. It
// mirrors the printf-style and keyword-argument-style pairs real call sites
// reach for: Infof/Errorf/Debugf/Warnf for formatted messages, Infow/Errorw/
// Debugw/Warnw for structured key-value pairs.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// With returns a child Logger with the given keyword pairs attached to
	// every subsequent line, for per-connection/per-session context.
	With(keysAndValues ...interface{}) Logger

	Sync() error
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// Config controls where and how the process writes logs.
type Config struct {
	Level      string // debug|info|warn|error
	FilePath   string // empty disables file rotation, stdout-only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Production bool // JSON encoding when true, console encoding when false
}

// New builds a Logger backed by zap. When cfg.FilePath is set, logs are
// written to a lumberjack-rotated file in addition to stdout.
func New(cfg Config) (Logger, error) {
	level, err := zapcore.ParseLevel(levelOrDefault(cfg.Level))
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Production {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefaultInt(cfg.MaxSizeMB, 100),
			MaxBackups: orDefaultInt(cfg.MaxBackups, 5),
			MaxAge:     orDefaultInt(cfg.MaxAgeDays, 28),
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{sugar: base.Sugar()}, nil
}

func levelOrDefault(s string) string {
	if s == "" {
		return "info"
	}
	return s
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (l *zapLogger) Debugf(template string, args ...interface{}) { l.sugar.Debugf(template, args...) }
func (l *zapLogger) Infof(template string, args ...interface{})  { l.sugar.Infof(template, args...) }
func (l *zapLogger) Warnf(template string, args ...interface{})  { l.sugar.Warnf(template, args...) }
func (l *zapLogger) Errorf(template string, args ...interface{}) { l.sugar.Errorf(template, args...) }

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(kv...)}
}

func (l *zapLogger) Sync() error { return l.sugar.Sync() }

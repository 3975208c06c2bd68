// Package logger wraps zap behind a small interface so services and tests
// can swap in the recording TestLogger.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Field = zapcore.Field

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	Named(name string) Logger
	Sync() error
}

type zapLogger struct {
	z *zap.Logger
}

// NewLogger builds a zap logger writing to every configured sink. Sinks
// other than stdout and stderr are files rotated by lumberjack.
func NewLogger(opts ...Option) (Logger, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	enabler := zap.NewAtomicLevelAt(lvl)
	enc := newEncoder(cfg.Encoding)

	cores := make([]zapcore.Core, 0, len(cfg.OutputPaths))
	for _, path := range cfg.OutputPaths {
		ws, err := openSink(path, cfg.Rotation)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(enc.Clone(), ws, enabler))
	}

	zopts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if cfg.Development {
		zopts = append(zopts, zap.Development())
	}
	if len(cfg.InitialFields) > 0 {
		fields := make([]Field, 0, len(cfg.InitialFields))
		for k, v := range cfg.InitialFields {
			fields = append(fields, zap.Any(k, v))
		}
		zopts = append(zopts, zap.Fields(fields...))
	}

	return &zapLogger{z: zap.New(zapcore.NewTee(cores...), zopts...)}, nil
}

// NewNop discards everything.
func NewNop() Logger {
	return &zapLogger{z: zap.NewNop()}
}

func newEncoder(encoding string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.NameKey = "logger"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if encoding == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(path string, rot Rotation) (zapcore.WriteSyncer, error) {
	switch path {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", path, err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}), nil
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, fields...) }

func (l *zapLogger) With(fields ...Field) Logger { return &zapLogger{z: l.z.With(fields...)} }
func (l *zapLogger) Named(name string) Logger    { return &zapLogger{z: l.z.Named(name)} }
func (l *zapLogger) Sync() error                 { return l.z.Sync() }

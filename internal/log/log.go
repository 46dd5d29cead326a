// Package log holds the process-wide zap logger. Commands initialize it
// once; the server hands named children of it to the engine and the REST
// controller, and the access log writes through it directly.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

// Init builds the process logger. Debug mode logs human-readable lines at
// debug level (model fits, cache misses); otherwise JSON lines at info.
func Init(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"app": "weatherdash"}

	zapLogger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}

	log = zapLogger.Sugar()
	return nil
}

// SetLogger replaces the process logger
func SetLogger(l *zap.Logger) {
	log = l.Sugar()
}

// GetSugaredLogger returns the process logger, falling back to a
// production logger when Init was never called
func GetSugaredLogger() *zap.SugaredLogger {
	if log == nil {
		zapLogger, _ := zap.NewProduction(zap.AddCallerSkip(1))
		log = zapLogger.Sugar()
	}
	return log
}

// Component returns a child logger whose entries carry the component name
func Component(name string) *zap.SugaredLogger {
	return GetSugaredLogger().Named(name)
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func Info(args ...any) {
	GetSugaredLogger().Info(args...)
}

func Infof(template string, args ...any) {
	GetSugaredLogger().Infof(template, args...)
}

func Errorf(template string, args ...any) {
	GetSugaredLogger().Errorf(template, args...)
}

// Fatalf logs at fatal level, which exits the process
func Fatalf(template string, args ...any) {
	GetSugaredLogger().Fatalf(template, args...)
}

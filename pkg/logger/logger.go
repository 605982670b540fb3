// Package logger provides structured logging for the progression service.
// It wraps logrus behind a small chainable API so callers never depend on
// the backend directly.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "json" or "text"
	Output     string `yaml:"output"` // "stdout", "stderr" or "file"
	FilePrefix string `yaml:"file_prefix"`
}

// Logger is a structured logger with contextual fields.
type Logger struct {
	entry *logrus.Entry
}

// New constructs a logger from the given configuration.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	base.SetOutput(resolveOutput(cfg))

	return &Logger{entry: logrus.NewEntry(base)}
}

// NewDefault returns an info-level text logger tagged with a component name.
func NewDefault(component string) *Logger {
	log := New(LoggingConfig{Level: "info", Format: "text", Output: "stderr"})
	return log.WithField("component", component)
}

func resolveOutput(cfg LoggingConfig) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "progression"
		}
		name := fmt.Sprintf("%s-%s.log", prefix, time.Now().UTC().Format("20060102"))
		if err := os.MkdirAll(filepath.Dir(name), 0o755); err == nil {
			if f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				return f
			}
		}
		return os.Stdout
	default:
		return os.Stdout
	}
}

// WithField returns a logger with an additional contextual field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithError returns a logger with the error attached as a field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

func (l *Logger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *Logger) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

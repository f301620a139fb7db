package logger

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Fields are structured key/value pairs attached to a log line
type Fields map[string]interface{}

// Logger is the logging interface injected into every component
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
	With(fields Fields) Logger
	WithError(err error) Logger
}

// Keys shared by every drafting log line
const (
	FieldRequestID    = "request_id"
	FieldDocumentType = "document_type"
	FieldSection      = "section"
	FieldStage        = "stage"
)

// ParseLevel accepts "debug", "info", "warn" or "error". Empty means info.
func ParseLevel(levelStr string) (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", levelStr)
	}
	if level > zapcore.ErrorLevel {
		return zapcore.InfoLevel, fmt.Errorf("log level %q would hide request failures", levelStr)
	}
	return level, nil
}

// New builds a zap logger for the given level and format ("json" or console).
// An unknown level falls back to info.
func New(levelStr, format string) *zap.Logger {
	level, _ := ParseLevel(levelStr)

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ForRequest scopes l to one drafting request. Empty values are left out so
// the document type can be attached once classification has run.
func ForRequest(l Logger, requestID, docType string) Logger {
	fields := Fields{}
	if requestID != "" {
		fields[FieldRequestID] = requestID
	}
	if docType != "" {
		fields[FieldDocumentType] = docType
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields)
}

// ForSection scopes l to one generated section
func ForSection(l Logger, section string) Logger {
	return l.With(Fields{FieldSection: section})
}

type zapWrapper struct {
	l *zap.Logger
}

func (z *zapWrapper) Debug(msg string, fields Fields) {
	z.l.Debug(msg, toZapFields(fields)...)
}

func (z *zapWrapper) Info(msg string, fields Fields) {
	z.l.Info(msg, toZapFields(fields)...)
}

func (z *zapWrapper) Warn(msg string, fields Fields) {
	z.l.Warn(msg, toZapFields(fields)...)
}

func (z *zapWrapper) Error(msg string, fields Fields) {
	z.l.Error(msg, toZapFields(fields)...)
}

func (z *zapWrapper) With(fields Fields) Logger {
	return &zapWrapper{l: z.l.With(toZapFields(fields)...)}
}

func (z *zapWrapper) WithError(err error) Logger {
	return &zapWrapper{l: z.l.With(zap.Error(err))}
}

func toZapFields(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(fields))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// NewStructured creates a Logger backed by zap
func NewStructured(levelStr, format string) Logger {
	return &zapWrapper{l: New(levelStr, format)}
}

// NewZapAdapter wraps an existing *zap.Logger
func NewZapAdapter(l *zap.Logger) Logger {
	return &zapWrapper{l: l}
}

// NewTestLogger creates a Logger that writes to the test output
func NewTestLogger(t testing.TB) Logger {
	return &zapWrapper{l: zaptest.NewLogger(t)}
}

// NewNop creates a Logger that discards everything
func NewNop() Logger {
	return &zapWrapper{l: zap.NewNop()}
}

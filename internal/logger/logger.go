// Package logger provides logging for gitbridge using the bullets library.
//
// The core engine never logs (it only propagates a correlation ID); this
// package serves the CLI, the resolver and the credential store.
package logger

import (
	"fmt"
	"os"

	"github.com/sgaunet/bullets"
)

// Logger is the logging interface consumed across gitbridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// bulletsLogger adapts *bullets.Logger to the variadic Logger interface by
// rendering key-value argument pairs as bullets fields.
type bulletsLogger struct {
	l *bullets.Logger
}

func (b *bulletsLogger) with(args []any) *bullets.Logger {
	if len(args) == 0 {
		return b.l
	}
	fields := make(map[string]interface{}, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields[key] = args[i+1]
	}
	return b.l.WithFields(fields)
}

func (b *bulletsLogger) Debug(msg string, args ...any) { b.with(args).Debug(msg) }
func (b *bulletsLogger) Info(msg string, args ...any)  { b.with(args).Info(msg) }
func (b *bulletsLogger) Warn(msg string, args ...any)  { b.with(args).Warn(msg) }
func (b *bulletsLogger) Error(msg string, args ...any) { b.with(args).Error(msg) }

// NewLogger creates a logger writing to stdout at the given level; unknown
// levels fall back to "info".
func NewLogger(logLevel string) Logger {
	var level bullets.Level
	switch logLevel {
	case "debug":
		level = bullets.DebugLevel
	case "info":
		level = bullets.InfoLevel
	case "warn":
		level = bullets.WarnLevel
	case "error":
		level = bullets.ErrorLevel
	default:
		level = bullets.InfoLevel
	}
	l := bullets.New(os.Stdout)
	l.SetLevel(level)
	return &bulletsLogger{l: l}
}

// NoLogger creates a logger that suppresses all output. Used in tests.
func NoLogger() Logger {
	l := bullets.New(os.Stdout)
	l.SetLevel(bullets.FatalLevel)
	return &bulletsLogger{l: l}
}

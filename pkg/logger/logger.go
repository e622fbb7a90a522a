// Package logger provides the zerolog-based structured logger shared by
// the service binaries and CLI tools.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so call sites get the chained field
// helpers below without importing zerolog directly.
type Logger struct {
	zerolog.Logger
}

// New builds the root logger for a service. Development gets the
// human-readable console writer; everything else emits JSON lines.
func New(service, environment string) *Logger {
	var out io.Writer = os.Stdout
	if environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Logger()
	return &Logger{Logger: l}
}

// WithComponent tags every entry with a component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("component", component).Logger()}
}

// WithTask tags every entry with a pipeline task name.
func (l *Logger) WithTask(task string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("task", task).Logger()}
}

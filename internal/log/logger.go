// Package log configures structured logging for the ledger. Interactive
// shells get a colored tint handler; anything else falls back to the plain
// text handler so piped output stays machine-readable.
package log

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Logger wraps slog.Logger with a component attribute.
type Logger struct {
	*slog.Logger
	component string
}

// Setup builds the process logger at the given level and installs it as
// the slog default.
func Setup(level slog.Level) *Logger {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger := &Logger{
		Logger:    slog.New(handler),
		component: ComponentApp,
	}
	slog.SetDefault(logger.Logger)
	return logger
}

// WithComponent returns a new logger tagged with a specific component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(FieldComponent, component),
		component: component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

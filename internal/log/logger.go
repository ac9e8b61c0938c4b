package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger and remembers the component it was created for.
type Logger struct {
	*slog.Logger
	base      *slog.Logger // without the component attribute
	component string
}

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Format    string // "json" or "text"
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// DefaultConfig returns sensible defaults for logging
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// ParseLevel maps DEBUG, INFO, WARN and ERROR (any case) to a slog level.
// An empty string means INFO.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: config.Level}
		if strings.EqualFold(config.Format, "json") {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
	}

	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	base := slog.New(handler)
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// Setup builds a logger from LOG_LEVEL/LOG_FORMAT style values and installs
// it as the slog default. An unknown level falls back to INFO and is reported.
func Setup(level, format, component string) *Logger {
	cfg := DefaultConfig()
	cfg.Format = format
	cfg.Component = component
	lvl, err := ParseLevel(level)
	cfg.Level = lvl

	logger := New(cfg)
	SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid LOG_LEVEL, using INFO", FieldError, err.Error())
	}
	return logger
}

// With returns a new logger with the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base.With(args...),
		component: l.component,
	}
}

// WithComponent returns a child logger tagged with a different component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.base.With(FieldComponent, component),
		base:      l.base,
		component: component,
	}
}

// SetDefault sets the default logger for the application
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}

package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger and remembers which component it logs for.
type Logger struct {
	*slog.Logger
	// base carries every attribute except the component, so WithComponent
	// replaces the component instead of adding a second one.
	base      *slog.Logger
	component string
}

// Config holds logger configuration. Handler wins over Output, Level and
// Format when set.
type Config struct {
	Level     slog.Level
	Format    string
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler returns a JSON handler for format "json" and a text handler otherwise.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// DefaultConfig logs text at info level to stdout.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		handler = NewHandler(out, config.Level, config.Format)
	}
	base := slog.New(handler)
	return newLogger(base, config.Component)
}

func newLogger(base *slog.Logger, component string) *Logger {
	l := &Logger{Logger: base, base: base, component: component}
	if component != "" {
		l.Logger = base.With(FieldComponent, component)
	}
	return l
}

// With returns a logger carrying args in addition to the current ones.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base.With(args...),
		component: l.component,
	}
}

// WithComponent returns a copy of l logging for component.
func (l *Logger) WithComponent(component string) *Logger {
	return newLogger(l.base, component)
}

// SetDefault sets the default logger for the application
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

func (l *Logger) Component() string {
	return l.component
}

package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures New.
type Options struct {
	Verbose bool
	Debug   bool
	Format  Format
	Writer  io.Writer
}

// SlogLogger adapts log/slog to ports.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// New builds a logger writing to stderr unless Options.Writer is set.
// Without Verbose only warnings and errors are emitted.
func New(opts Options) *SlogLogger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelInfo
	}
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return &SlogLogger{log: slog.New(handler)}
}

// FromEnv reads EMPERATOR_LOG_FORMAT and EMPERATOR_DEBUG. JSON output is
// also chosen when stderr is not a terminal and no format was requested.
func FromEnv(verbose bool) *SlogLogger {
	format := Format(strings.ToLower(os.Getenv("EMPERATOR_LOG_FORMAT")))
	if format == "" {
		format = FormatText
		if !isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("CI") != "" {
			format = FormatJSON
		}
	}
	debug := isTruthy(os.Getenv("EMPERATOR_DEBUG"))
	return New(Options{Verbose: verbose || debug, Debug: debug, Format: format})
}

// Nop discards everything.
func Nop() *SlogLogger {
	return New(Options{Writer: io.Discard})
}

func (l *SlogLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug(msg, attrs(fields)...)
}

func (l *SlogLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Info(msg, attrs(fields)...)
}

func (l *SlogLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn(msg, attrs(fields)...)
}

func (l *SlogLogger) Error(msg string, err error, fields map[string]interface{}) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	l.log.Error(msg, args...)
}

// Slog exposes the underlying logger for libraries that accept *slog.Logger.
func (l *SlogLogger) Slog() *slog.Logger {
	return l.log
}

func attrs(fields map[string]interface{}) []any {
	if len(fields) == 0 {
		return nil
	}
	out := make([]any, 0, len(fields))
	for k, v := range fields {
		out = append(out, slog.Any(k, v))
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

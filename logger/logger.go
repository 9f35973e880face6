package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps a zerolog.Logger with the service identity it was built for.
type Logger struct {
	zl      zerolog.Logger
	service string
}

// New builds a logger from cfg. Unknown levels fall back to info rather
// than failing; construction must always yield a usable logger.
func New(cfg Config, service string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if strings.EqualFold(cfg.Format, "console") {
		zl = consoleLogger(cfg, service)
	} else {
		zl = jsonLogger(cfg, service)
	}

	zl = zl.Level(level)
	if cfg.Caller {
		zl = zl.With().Caller().Logger()
	}

	return &Logger{zl: zl, service: service}
}

// NewDefault builds a console logger at info level.
func NewDefault(service string) *Logger {
	var cfg Config
	cfg.ApplyDefaults()
	return New(cfg, service)
}

// NewFromEnv builds a logger from LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT,
// LOG_NO_COLOR, and LOG_NO_TIMESTAMP.
func NewFromEnv(service string) *Logger {
	cfg := Config{
		Level:       envOr("LOG_LEVEL", "info"),
		Format:      envOr("LOG_FORMAT", "console"),
		Output:      envOr("LOG_OUTPUT", "stdout"),
		NoColor:     envBool("LOG_NO_COLOR"),
		NoTimestamp: envBool("LOG_NO_TIMESTAMP"),
	}
	return New(cfg, service)
}

// Init installs the global logger and aligns zerolog's own global with it,
// so direct zerolog users in the same process log consistently.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	service := cfg.ServiceName
	if service == "" {
		service = "stagekit"
	}

	l := New(cfg, service)
	SetGlobalLogger(l)

	if level, err := zerolog.ParseLevel(cfg.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Logger = l.zl
}

// WithComponent returns a copy tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str(FieldComponent, name).Logger(), service: l.service}
}

// WithFields returns a copy carrying the given fields on every event.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	zc := l.zl.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{zl: zc.Logger(), service: l.service}
}

// WithError returns a copy carrying err on every event.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger(), service: l.service}
}

// GetLogger exposes the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.zl
}

func (l *Logger) Debug(msg string, fields ...map[string]any) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...map[string]any)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...map[string]any)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...map[string]any) { emit(l.zl.Error(), msg, fields) }

// Fatal logs and then exits the process.
func (l *Logger) Fatal(msg string, fields ...map[string]any) { emit(l.zl.Fatal(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []map[string]any) {
	for _, fm := range fields {
		for k, v := range fm {
			e = e.Interface(k, v)
		}
	}
	e.Msg(msg)
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// GetGlobalLogger returns the process-wide logger, building a default
// one on first use.
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefault("stagekit")
	}
	return globalLogger
}

// Package-level shorthands on the global logger.

func Debug(msg string, fields ...map[string]any) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]any)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]any)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]any) { GetGlobalLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...map[string]any) { GetGlobalLogger().Fatal(msg, fields...) }

// WithComponent tags the global logger with a component name.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

func jsonLogger(cfg Config, service string) zerolog.Logger {
	zc := zerolog.New(destWriter(cfg.Output)).With()
	if service != "" {
		zc = zc.Str(FieldService, service)
	}
	if !cfg.NoTimestamp {
		zc = zc.Timestamp()
	}
	return zc.Logger()
}

func consoleLogger(cfg Config, service string) zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out:        destWriter(cfg.Output),
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
	}
	w.FormatLevel = func(i any) string {
		return serviceTag(service, cfg.NoColor) + levelTag(fmt.Sprint(i), cfg.NoColor)
	}
	w.FormatFieldName = func(i any) string { return fmt.Sprint(i) + ":" }

	zc := zerolog.New(w).With()
	if !cfg.NoTimestamp {
		zc = zc.Timestamp()
	}
	return zc.Logger()
}

func destWriter(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// serviceTag prefixes console lines with the first three letters of the
// service name, so interleaved output from cooperating processes stays
// attributable. The bare kit name is not worth a tag.
func serviceTag(service string, noColor bool) string {
	if len(service) < 3 || service == "stagekit" {
		return ""
	}
	return colorize("["+strings.ToUpper(service[:3])+"]", ansiBlue, noColor)
}

var levelColors = map[string]string{
	"trace": ansiCyan,
	"debug": ansiCyan,
	"info":  ansiGreen,
	"warn":  ansiYellow,
	"error": ansiRed,
	"fatal": ansiMagenta,
}

func levelTag(level string, noColor bool) string {
	lower := strings.ToLower(level)
	tag := "[" + strings.ToUpper(lower[:min(3, len(lower))]) + "]"
	color, ok := levelColors[lower]
	if !ok {
		return tag
	}
	return colorize(tag, color, noColor)
}

const (
	ansiCyan    = "\033[36m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiRed     = "\033[31m"
	ansiMagenta = "\033[35m"
	ansiBlue    = "\033[34m"
	ansiReset   = "\033[0m"
)

func colorize(s, color string, noColor bool) string {
	if noColor {
		return s
	}
	return color + s + ansiReset
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

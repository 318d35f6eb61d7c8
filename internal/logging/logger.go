package logging

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arashi-logworks/grokline/pkg/grok"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level  string
	Format string // "json" or "console"
	Output io.Writer
}

// New creates a new logger instance
func New(cfg Config) *Logger {
	var level zerolog.Level
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	case "fatal":
		level = zerolog.FatalLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(output).With().Timestamp().Logger()
	}

	return &Logger{Logger: logger}
}

// SetGlobal sets the global logger
func SetGlobal(logger *Logger) {
	log.Logger = logger.Logger
}

// Global returns the global logger
func Global() *Logger {
	return &Logger{Logger: log.Logger}
}

// WithComponent creates a child logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("component", component).Logger(),
	}
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.With().Interface(key, value).Logger(),
	}
}

// grokErrorKindString names a grok.ErrorKind for structured logging, since
// the kind itself is just an int and a log line naming "recursion_too_deep" is
// worth far more to an operator than "0".
func grokErrorKindString(kind grok.ErrorKind) string {
	switch kind {
	case grok.RecursionTooDeep:
		return "recursion_too_deep"
	case grok.CompiledPatternIsEmpty:
		return "compiled_pattern_empty"
	case grok.DefinitionNotFound:
		return "definition_not_found"
	case grok.RegexCompilationFailed:
		return "regex_compilation_failed"
	case grok.GenericCompilationFailure:
		return "generic_compilation_failure"
	default:
		return "unknown"
	}
}

// LogPatternCompileFailure logs a pattern-name-to-regex compilation failure
// with pkg/grok's Kind/Detail split out as separate structured fields rather
// than flattened into one error string, so an operator can alert on
// definition_not_found (a typo in a %{NAME} reference) differently from
// recursion_too_deep (a cyclic or runaway pattern definition).
func (l *Logger) LogPatternCompileFailure(patternName string, err error) {
	event := l.Error().Str("pattern", patternName)
	var gerr *grok.Error
	if errors.As(err, &gerr) {
		event = event.Str("grok_error_kind", grokErrorKindString(gerr.Kind)).Str("grok_error_detail", gerr.Detail)
	} else {
		event = event.Err(err)
	}
	event.Msg("grok pattern compilation failed")
}

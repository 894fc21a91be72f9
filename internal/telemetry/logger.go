// Package telemetry provides the engine's logging and metrics surface:
// a zerolog-backed structured logger and a small prometheus registry of
// batch/template/transformer counters. Neither is part of the core's
// contract with its callers — they are the ambient observability a host
// process wires around a Driver.Process call.
package telemetry

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with the fields the expansion engine's
// batches, templates, and parameter files need attached to every line.
type Logger struct {
	zlog   zerolog.Logger
	config LoggingConfig
}

type loggerContextKey struct{}

// NewLogger creates a logger from the given configuration. There is no
// sampling path: a single process() batch logs at most a few hundred
// lines, nowhere near the volume sampling exists to cap.
func NewLogger(cfg LoggingConfig) (*Logger, error) {
	writer, err := openWriter(cfg.Output)
	if err != nil {
		return nil, err
	}

	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: consoleTimeLayout(cfg.TimeFormat),
			NoColor:    false,
		}
	}
	zerolog.TimeFieldFormat = timeFieldFormat(cfg.TimeFormat)

	ctx := zerolog.New(writer).With().Timestamp()
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}
	zlog := ctx.Logger().Level(levelFromName(cfg.Level))

	return &Logger{zlog: zlog, config: cfg}, nil
}

// openWriter resolves cfg.Output to its destination: the two well-known
// stream names, or a file path opened for append.
func openWriter(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	}
}

// WithContext attaches the logger to ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext retrieves the logger attached by WithContext, or a minimal
// stdout default if none was attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zlog: zerolog.New(os.Stdout).With().Timestamp().Logger()}
}

// WithField returns a logger with a single additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger(), config: l.config}
}

// WithTemplate adds the template identifier a log line concerns.
func (l *Logger) WithTemplate(name, version string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("template_name", name).
			Str("template_version", version).
			Logger(),
		config: l.config,
	}
}

// WithParameterFile adds the parameter-file identifier a log line concerns.
func (l *Logger) WithParameterFile(name, version string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("param_file_name", name).
			Str("param_file_version", version).
			Logger(),
		config: l.config,
	}
}

// WithError adds error information to the logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger(), config: l.config}
}

func (l *Logger) Trace(msg string) { l.zlog.Trace().Msg(msg) }
func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }
func (l *Logger) Fatal(msg string) { l.zlog.Fatal().Msg(msg) }

func (l *Logger) Infof(format string, args ...interface{})  { l.zlog.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.zlog.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.zlog.Error().Msgf(format, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.zlog.Debug().Msgf(format, args...) }

// logLevelsByName maps a config string to the zerolog level it selects. An
// unrecognized name, including the empty string a zero-value config leaves,
// falls through to info.
var logLevelsByName = map[string]zerolog.Level{
	"trace": zerolog.TraceLevel,
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
	"fatal": zerolog.FatalLevel,
}

func levelFromName(name string) zerolog.Level {
	if lvl, ok := logLevelsByName[name]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// timeFieldFormatsByName maps a config string to the layout
// zerolog.TimeFieldFormat understands for the "time" field on every event.
var timeFieldFormatsByName = map[string]string{
	"unix":      zerolog.TimeFormatUnix,
	"unixms":    zerolog.TimeFormatUnixMs,
	"unixmicro": zerolog.TimeFormatUnixMicro,
}

func timeFieldFormat(name string) string {
	if format, ok := timeFieldFormatsByName[name]; ok {
		return format
	}
	return time.RFC3339
}

// consoleTimeLayout is the subset of timeFieldFormat the console writer's
// human-readable renderer understands: it knows the literal string "unix"
// but not zerolog's other numeric format constants.
func consoleTimeLayout(name string) string {
	if name == "unix" {
		return "unix"
	}
	return time.RFC3339
}

package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	envLogLevel = "LOG_LEVEL"
	envLogType  = "LOG_TYPE"
)

var stderr = struct{ io.Writer }{os.Stderr}

func init() { //nolint:gochecknoinits // init with zerolog is idiomatic
	configureLogging(os.Getenv(envLogLevel), os.Getenv(envLogType))
}

type tTesting interface {
	Log(args ...interface{})
	Logf(format string, args ...interface{})
	Helper()
	Cleanup(f func())
}

// ConfigureTestLogging allows logs to be associated with individual tests
func ConfigureTestLogging(t tTesting) {
	oldLogger := log.Logger
	oldContextLogger := zerolog.DefaultContextLogger
	configureLogging(os.Getenv(envLogLevel), "", zerolog.ConsoleTestWriter(t))
	t.Cleanup(func() {
		log.Logger = oldLogger
		zerolog.DefaultContextLogger = oldContextLogger
	})
}

// ConfigureLogging reconfigures the global logger once configuration has
// been loaded. Empty values keep the environment's settings.
func ConfigureLogging(level, logType string) {
	if level == "" {
		level = os.Getenv(envLogLevel)
	}
	if logType == "" {
		logType = os.Getenv(envLogType)
	}
	configureLogging(level, logType)
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func configureLogging(level, logType string, loggingOptions ...func(w *zerolog.ConsoleWriter)) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(ParseLevel(level))

	isTerminal := isatty.IsTerminal(os.Stderr.Fd())

	defaultLogging := func(w *zerolog.ConsoleWriter) {
		w.Out = stderr
		w.NoColor = !isTerminal
		w.TimeFormat = "15:04:05.999 |"
		w.PartsOrder = []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		}

		w.FormatFieldName = func(i interface{}) string {
			return fmt.Sprintf("[%s:", i)
		}

		w.FormatFieldValue = func(i interface{}) string {
			// don't print nil in case field value wasn't preset
			if i == nil {
				i = ""
			}
			return fmt.Sprintf("%s]", i)
		}
	}

	loggingOptions = append([]func(w *zerolog.ConsoleWriter){defaultLogging}, loggingOptions...)

	textWriter := zerolog.NewConsoleWriter(loggingOptions...)

	zerolog.CallerMarshalFunc = shortCaller

	// we default to text output on stderr; stdout is kept for command output
	var useLogWriter io.Writer = textWriter

	switch strings.ToLower(logType) {
	case "json":
		useLogWriter = stderr
	case "combined":
		useLogWriter = zerolog.MultiLevelWriter(textWriter, stderr)
	case "none":
		useLogWriter = io.Discard
	}

	log.Logger = zerolog.New(useLogWriter).With().Timestamp().Caller().Logger()
	// Tests and code paths without a request logger fall back to this one.
	zerolog.DefaultContextLogger = &log.Logger
}

// shortCaller keeps the last two path elements of the caller's file.
func shortCaller(_ uintptr, file string, line int) string {
	short := file

	separatorCount := 2
	countedSeparators := 0

	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			countedSeparators += 1
			if countedSeparators >= separatorCount {
				short = file[i+1:]
				break
			}
		}
	}
	return short + ":" + strconv.Itoa(line)
}

// ContextWithRequestLogger returns a context whose logger tags every line
// with the request being relayed.
func ContextWithRequestLogger(ctx context.Context, requestID, imageID string, block uint64, correlationID string) context.Context {
	l := log.Ctx(ctx).With().
		Str("request", requestID).
		Str("image", shortID(imageID)).
		Uint64("block", block).
		Str("correlation", correlationID).
		Logger()
	return l.WithContext(ctx)
}

func shortID(id string) string {
	if len(id) > 16 { //nolint:gomnd
		return id[:16]
	}
	return id
}

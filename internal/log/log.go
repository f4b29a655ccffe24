// Package log provides the process-wide structured logger used by every
// other package. It wraps zerolog the same way across the whole binary so
// that API mode and view mode produce consistent log lines.
package log

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger with predefined settings.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

// SetLevel sets the global logging level.
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// ExtendWithStr extends the logger with an extra key=value pair. Previously
// added pairs are not preserved.
func ExtendWithStr(name, value string) {
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Str(name, value).Logger()
}

// Debug prints a message with DEBUG severity.
func Debug(msg string) { Logger.Debug().Msg(msg) }

// Debugf prints a formatted message with DEBUG severity.
func Debugf(format string, v ...interface{}) { Logger.Debug().Msgf(format, v...) }

// Debugln concatenates arguments and prints them with DEBUG severity.
func Debugln(v ...interface{}) { Logger.Debug().Msg(fmt.Sprint(v...)) }

// Info prints a message with INFO severity.
func Info(msg string) { Logger.Info().Msg(msg) }

// Infof prints a formatted message with INFO severity.
func Infof(format string, v ...interface{}) { Logger.Info().Msgf(format, v...) }

// Infoln concatenates arguments and prints them with INFO severity.
func Infoln(v ...interface{}) { Logger.Info().Msg(fmt.Sprint(v...)) }

// Warn prints a message with WARN severity.
func Warn(msg string) { Logger.Warn().Msg(msg) }

// Warnf prints a formatted message with WARN severity.
func Warnf(format string, v ...interface{}) { Logger.Warn().Msgf(format, v...) }

// Warnln concatenates arguments and prints them with WARN severity.
func Warnln(v ...interface{}) { Logger.Warn().Msg(fmt.Sprint(v...)) }

// Error prints a message with ERROR severity.
func Error(msg string) { Logger.Error().Msg(msg) }

// Errorf prints a formatted message with ERROR severity.
func Errorf(format string, v ...interface{}) { Logger.Error().Msgf(format, v...) }

// Errorln concatenates arguments and prints them with ERROR severity.
func Errorln(v ...interface{}) { Logger.Error().Msg(fmt.Sprint(v...)) }

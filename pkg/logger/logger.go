// Package logger configures application-wide logging. Output goes to the
// console and, when initialized with a filename, to a log file as well.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

var (
	log     zerolog.Logger
	logFile *os.File
)

func init() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	log = zerolog.New(consoleWriter).With().Timestamp().Logger()
}

// Init routes log output to both the console and the given file.
func Init(filename string, level zerolog.Level) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	logFile = f

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	multi := io.MultiWriter(consoleWriter, f)
	log = zerolog.New(multi).With().Timestamp().Logger().Level(level)

	return nil
}

func Close() {
	if logFile != nil {
		logFile.Close()
	}
}

// Logger returns the configured logger for components that carry their own
// logger value.
func Logger() zerolog.Logger {
	return log
}

func Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

func Debugf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

/*
MIT License

Copyright (c) 2025 Yuval Adar <adary@adary.org>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var globalLogger = zerolog.Nop()

// Options controls where log lines go
type Options struct {
	LogFile    string
	Level      string
	MaxAge     int // days
	MaxSize    int // MB
	MaxBackups int

	// Console mirrors log lines to stderr. The TUI leaves it off so the
	// alternate screen is not scribbled over.
	Console bool
}

// InitLogger sets up logging with file rotation and optional console output
func InitLogger(opts Options) error {
	// Ensure log directory exists
	logDir := filepath.Dir(opts.LogFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	// Set up lumberjack for log rotation
	fileWriter := &lumberjack.Logger{
		Filename:   opts.LogFile,
		MaxSize:    opts.MaxSize,
		MaxAge:     opts.MaxAge,
		MaxBackups: opts.MaxBackups,
		LocalTime:  true,
		Compress:   true, // compress old log files
	}

	var out io.Writer = fileWriter
	if opts.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02 15:04:05",
		}
		out = io.MultiWriter(fileWriter, consoleWriter)
	}

	setLogger(out, opts.Level, true)
	return nil
}

// SetOutput sends log lines to w at the given level
func SetOutput(w io.Writer, level string) {
	setLogger(w, level, false)
}

func setLogger(w io.Writer, level string, caller bool) {
	ctx := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp()
	if caller {
		// Skip this package's wrappers so the caller is reported
		ctx = ctx.CallerWithSkipFrameCount(3)
	}
	globalLogger = ctx.Logger()

	// Also set the global zerolog logger
	log.Logger = globalLogger
}

func parseLevel(level string) zerolog.Level {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel // Default to info if invalid level
	}
	return logLevel
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	globalLogger.Debug().Msgf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	globalLogger.Info().Msgf(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	globalLogger.Warn().Msgf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	globalLogger.Error().Msgf(format, args...)
}

// Fatal logs a fatal message and exits
func Fatal(format string, args ...interface{}) {
	globalLogger.Fatal().Msgf(format, args...)
}

// SetLevel changes the logging level
func SetLevel(level string) {
	globalLogger = globalLogger.Level(parseLevel(level))
	log.Logger = globalLogger
}

// GetLevel returns the current level name
func GetLevel() string {
	return globalLogger.GetLevel().String()
}

// GetLogger returns the configured logger instance
func GetLogger() zerolog.Logger {
	return globalLogger
}

// Package logx provides a thin package-level wrapper around charmbracelet/log.
package logx

import (
	"os"

	"github.com/charmbracelet/log"
)

var Logger *log.Logger

// DebugLevel is re-exported so callers can raise verbosity without
// importing the underlying log package.
var DebugLevel = log.DebugLevel

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
	})
}

// SetLevel changes the minimum level of the shared logger.
func SetLevel(level log.Level) {
	Logger.SetLevel(level)
}

// Debug logs a debug message.
func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message.
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message.
func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message.
func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

package util

import (
	"fmt"
	"log"
	"sync/atomic"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
)

var verbose atomic.Bool

// SetVerbose toggles Detailf output.
func SetVerbose(on bool) {
	verbose.Store(on)
}

// Verbose reports whether detail logging is enabled.
func Verbose() bool {
	return verbose.Load()
}

// Infof logs an info message.
func Infof(format string, args ...any) {
	logLevel(colorGreen, "INFO", format, args...)
}

// Warnf logs a warning message.
func Warnf(format string, args ...any) {
	logLevel(colorYellow, "WARN", format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	logLevel(colorRed, "ERROR", format, args...)
}

// Highlightf logs a highlighted message.
func Highlightf(format string, args ...any) {
	logLevel(colorBlue, "NOTE", format, args...)
}

// Detailf logs a per-trial message when verbose logging is on.
func Detailf(format string, args ...any) {
	if !verbose.Load() {
		return
	}
	logLevel(colorMagenta, "DETAIL", format, args...)
}

func logLevel(color, level, format string, args ...any) {
	log.Printf("%s %s", colorize(color, level), fmt.Sprintf(format, args...))
}

func colorize(color, msg string) string {
	return color + msg + colorReset
}

package logger

import (
	"fmt"
	"log"
	"os"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	currentLevel = INFO
	colorEnabled = true
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// SetLevel sets the minimum log level
func SetLevel(level LogLevel) {
	currentLevel = level
}

// SetDebug enables or disables debug logging
func SetDebug(enabled bool) {
	if enabled {
		currentLevel = DEBUG
	} else {
		currentLevel = INFO
	}
}

// DisableColor disables color output (useful for file logging)
func DisableColor() {
	colorEnabled = false
}

// formatMessage formats a log message with level, timestamp, and color. The
// component is typically a plugin or subsystem name.
func formatMessage(level LogLevel, component, message string) string {
	timestamp := time.Now().Format("15:04:05")

	var levelStr, color string
	switch level {
	case DEBUG:
		levelStr = "DEBUG"
		color = colorGray
	case INFO:
		levelStr = "INFO "
		color = colorGreen
	case WARN:
		levelStr = "WARN "
		color = colorYellow
	case ERROR:
		levelStr = "ERROR"
		color = colorRed
	}

	if !colorEnabled {
		return fmt.Sprintf("%s [%s] %s: %s", timestamp, levelStr, component, message)
	}

	levelColored := fmt.Sprintf("%s%s%s", color, levelStr, colorReset)
	componentColored := fmt.Sprintf("%s%s%s", colorBold, component, colorReset)

	return fmt.Sprintf("%s [%s] %s: %s", timestamp, levelColored, componentColored, message)
}

// logf is the internal logging function
func logf(level LogLevel, component, format string, args ...interface{}) {
	if level < currentLevel {
		return
	}

	message := fmt.Sprintf(format, args...)
	log.Println(formatMessage(level, component, message))
}

// Debug logs a debug message
func Debug(component, format string, args ...interface{}) {
	logf(DEBUG, component, format, args...)
}

// Info logs an info message
func Info(component, format string, args ...interface{}) {
	logf(INFO, component, format, args...)
}

// Warn logs a warning message
func Warn(component, format string, args ...interface{}) {
	logf(WARN, component, format, args...)
}

// Error logs an error message
func Error(component, format string, args ...interface{}) {
	logf(ERROR, component, format, args...)
}

func init() {
	// Remove the default timestamp from log package since we add our own
	log.SetFlags(0)

	if os.Getenv("FORCE_COLOR") == "1" {
		colorEnabled = true
	}
}

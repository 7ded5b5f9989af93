package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	DebugLogger *log.Logger
	InfoLogger  *log.Logger
	WarnLogger  *log.Logger
	ErrorLogger *log.Logger

	level = LevelInfo
)

// InitLogging initializes logging at the given level name (debug, info, warn, error).
func InitLogging(levelName string) {
	InitLoggingTo(os.Stdout, os.Stderr, levelName)
}

// InitLoggingTo initializes logging with explicit writers, mostly for tests.
func InitLoggingTo(out, errOut io.Writer, levelName string) {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	DebugLogger = log.New(out, "DEBUG: ", flags)
	InfoLogger = log.New(out, "INFO: ", flags)
	WarnLogger = log.New(errOut, "WARN: ", flags)
	ErrorLogger = log.New(errOut, "ERROR: ", flags)
	level = ParseLevel(levelName)
}

// ParseLevel maps a level name to a Level, defaulting to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Debugf logs debug level messages
func Debugf(format string, v ...interface{}) {
	output(LevelDebug, DebugLogger, format, v...)
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	output(LevelInfo, InfoLogger, format, v...)
}

// Warnf logs warning level messages
func Warnf(format string, v ...interface{}) {
	output(LevelWarn, WarnLogger, format, v...)
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	output(LevelError, ErrorLogger, format, v...)
}

func output(l Level, logger *log.Logger, format string, v ...interface{}) {
	if logger == nil || l < level {
		return
	}
	// calldepth 3 points Lshortfile at the caller of Infof and friends
	_ = logger.Output(3, fmt.Sprintf(format, v...))
}

// Mask hides the middle of a secret so it can be logged, e.g. license keys.
func Mask(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

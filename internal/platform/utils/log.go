package utils

import (
	"log"
	"strings"
	"sync/atomic"
)

type LogLevel uint32

const (
	LogLevelNothing LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

var logLevel atomic.Uint32

func init() {
	logLevel.Store(uint32(LogLevelInfo))
}

func SetLogLevel(level LogLevel) {
	logLevel.Store(uint32(level))
}

// ParseLogLevel maps LOG_LEVEL values. Unknown values fall back to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "none", "nothing", "off":
		return LogLevelNothing
	case "error":
		return LogLevelError
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

func Debug() bool {
	return LogLevel(logLevel.Load()) >= LogLevelDebug
}

func Debugf(format string, args ...interface{}) {
	if Debug() {
		log.Printf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if LogLevel(logLevel.Load()) >= LogLevelInfo {
		log.Printf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if LogLevel(logLevel.Load()) >= LogLevelError {
		log.Printf(format, args...)
	}
}

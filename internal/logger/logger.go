// Package logger is a small logging facade with centralized verbosity
// control on top of the standard log package.
//
// Verbosity levels, in increasing order:
//
//	Error < Info < Debug < Trace
//
// Warnings share the Info threshold: anything worth warning about is
// worth seeing in a default run.
//
// Example:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("pricing started")
//	logger.Debugf("spot=%f vol=%f", spot, vol)
package logger

import (
	"log"
	"os"
)

// Level represents a logging verbosity level. Higher is chattier.
type Level int

const (
	Error Level = iota // critical failures only
	Info               // high-level progress and warnings
	Debug              // diagnostic detail
	Trace              // fine-grained execution traces
)

// current holds the active verbosity level. Only messages with
// level <= current are logged.
var current Level = Info

func init() {
	// Logs go to stderr so normal program output stays pipeable.
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// SetVerbosity sets the global logging verbosity, typically once after
// flag or config parsing.
func SetVerbosity(v int) {
	current = Level(v)
}

func logf(l Level, prefix, format string, args ...any) {
	if current >= l {
		log.Printf(prefix+format, args...)
	}
}

// Errorf logs a failure that requires attention.
func Errorf(format string, args ...any) {
	logf(Error, "[ERROR] ", format, args...)
}

// Warnf logs a condition worth flagging that does not stop the run, such
// as a reference-check mismatch.
func Warnf(format string, args ...any) {
	logf(Info, "[WARN]  ", format, args...)
}

// Infof logs a major lifecycle event.
func Infof(format string, args ...any) {
	logf(Info, "[INFO]  ", format, args...)
}

// Debugf logs diagnostic output useful during development.
func Debugf(format string, args ...any) {
	logf(Debug, "[DEBUG] ", format, args...)
}

// Tracef logs very detailed execution traces. High volume.
func Tracef(format string, args ...any) {
	logf(Trace, "[TRACE] ", format, args...)
}

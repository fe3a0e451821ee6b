// Package nlog is the small leveled logger used throughout sloked.
package nlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

type Level int32

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

var (
	level  atomic.Int32
	std    = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	fastV  atomic.Int32 // FastV verbosity threshold
)

func init() {
	level.Store(int32(LevelInfo))
}

// SetLevel adjusts the minimum level that will be emitted.
func SetLevel(l Level) { level.Store(int32(l)) }

// SetOutput redirects the underlying writer, e.g. for tests.
func SetOutput(w io.Writer) { std.SetOutput(w) }

// SetVerbosity sets the threshold consulted by FastV.
func SetVerbosity(v int) { fastV.Store(int32(v)) }

// FastV reports whether the configured verbosity is at least `v` for the
// named module. There is no per-module registry; `module` is accepted for
// call-site clarity but only the numeric threshold gates output.
func FastV(v int, module string) bool {
	return int32(v) <= fastV.Load()
}

func enabled(l Level) bool { return int32(l) <= level.Load() }

func output(l Level, prefix string, args ...interface{}) {
	if !enabled(l) {
		return
	}
	std.Output(3, prefix+fmt.Sprintln(args...)) //nolint:errcheck
}

func outputf(l Level, prefix, format string, args ...interface{}) {
	if !enabled(l) {
		return
	}
	std.Output(3, prefix+fmt.Sprintf(format, args...)+"\n") //nolint:errcheck
}

func Infoln(args ...interface{}) { output(LevelInfo, "I ", args...) }
func Infof(format string, args ...interface{}) { outputf(LevelInfo, "I ", format, args...) }
func Warningln(args ...interface{}) { output(LevelWarning, "W ", args...) }
func Warningf(format string, args ...interface{}) { outputf(LevelWarning, "W ", format, args...) }
func Errorln(args ...interface{}) { output(LevelError, "E ", args...) }
func Errorf(format string, args ...interface{}) { outputf(LevelError, "E ", format, args...) }
func Debugln(args ...interface{}) { output(LevelDebug, "D ", args...) }
func Debugf(format string, args ...interface{}) { outputf(LevelDebug, "D ", format, args...) }

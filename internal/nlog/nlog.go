// Package nlog is texopt's logger: leveled, depth-aware, synchronous.
//
// Adapted from the teacher's cmn/nlog: same severity model and call
// surface (Infof/Warningf/Errorf, a depth-aware variant, FastV-style
// verbosity gating), but without the buffered-file-rotation machinery --
// texopt is a short batch run, not a long-lived daemon, so there is
// nothing to rotate or flush on a timer.
package nlog

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var (
	mu      sync.Mutex
	verbose int64
	runID   string
)

// SetVerbosity sets the global V-gate threshold (see V, below).
func SetVerbosity(v int) { atomic.StoreInt64(&verbose, int64(v)) }

// SetRunID attaches a short correlation ID (see internal/xstats) to every line.
func SetRunID(id string) { runID = id }

// V reports whether logging at the given verbosity level is enabled,
// mirroring the teacher's cmn.Config.FastV gate used throughout ext/dsort.
func V(level int) bool { return atomic.LoadInt64(&verbose) >= int64(level) }

func Infof(format string, args ...any)    { logf(sevInfo, 1, format, args...) }
func Infoln(args ...any)                  { logln(sevInfo, 1, args...) }
func Warningf(format string, args ...any) { logf(sevWarn, 1, format, args...) }
func Warningln(args ...any)               { logln(sevWarn, 1, args...) }
func Errorf(format string, args ...any)   { logf(sevErr, 1, format, args...) }
func Errorln(args ...any)                 { logln(sevErr, 1, args...) }

// InfoDepth/ErrorDepth let a thin wrapper (e.g. a per-worker logger) report
// the caller's line instead of its own -- same shape as the teacher's.
func InfoDepth(depth int, args ...any)  { logln(sevInfo, depth+1, args...) }
func ErrorDepth(depth int, args ...any) { logln(sevErr, depth+1, args...) }

func logf(sev severity, depth int, format string, args ...any) {
	write(sev, depth+1, fmt.Sprintf(format, args...))
}

func logln(sev severity, depth int, args ...any) {
	write(sev, depth+1, fmt.Sprint(args...))
}

func write(sev severity, depth int, msg string) {
	mu.Lock()
	defer mu.Unlock()
	out := os.Stdout
	if sev == sevErr {
		out = os.Stderr
	}
	ts := time.Now().Format("15:04:05.000")
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		file, line = "???", 0
	} else {
		file = filepath.Base(file)
	}
	prefix := sevChar(sev)
	if runID != "" {
		fmt.Fprintf(out, "%s%s [%s] %s:%d] %s\n", prefix, ts, runID, file, line, msg)
		return
	}
	fmt.Fprintf(out, "%s%s %s:%d] %s\n", prefix, ts, file, line, msg)
}

func sevChar(sev severity) string {
	switch sev {
	case sevWarn:
		return "W"
	case sevErr:
		return "E"
	default:
		return "I"
	}
}

// InitFlags registers the -v verbosity flag, mirroring nlog.InitFlags in the teacher.
func InitFlags(flset *flag.FlagSet) {
	flset.Func("v", "log verbosity (0=quiet, higher=more chatty)", func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		SetVerbosity(n)
		return nil
	})
}

// Package log provides the small operational logger used by
// cmd/kvstored and by the cluster layer's replication fan-out. The
// dispatcher does not log; it returns errors to its caller. The teacher corpus has no structured
// logging dependency anywhere in its buildable tree - it surfaces
// operational events as wrapped errors returned to a caller that prints
// them - so this package keeps that idiom rather than reaching for an
// ecosystem logger the teacher never uses: a thin wrapper around the
// standard library's log.Logger, writing prefixed lines to an io.Writer.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger writes timestamped operational lines. The zero value is not
// usable; call New.
type Logger struct {
	std *log.Logger
}

// New returns a Logger writing to w with prefix included in every line.
func New(w io.Writer, prefix string) *Logger {
	return &Logger{std: log.New(w, prefix+" ", log.LstdFlags)}
}

// Default returns a Logger writing to os.Stderr, matching where the
// teacher's CLI prints operational output.
func Default(prefix string) *Logger {
	return New(os.Stderr, prefix)
}

// Infof logs a formatted informational line.
func (l *Logger) Infof(format string, args ...any) {
	l.std.Printf(format, args...)
}

// Errorf logs a formatted error line.
func (l *Logger) Errorf(format string, args ...any) {
	l.std.Printf("error: "+format, args...)
}

// Error logs err with a short label, or does nothing if err is nil.
func (l *Logger) Error(label string, err error) {
	if err == nil {
		return
	}

	l.std.Printf("error: %s: %s", label, fmt.Sprint(err))
}

// Package logging provides the structured logger every core component is
// constructed with. It generalizes the bare log.Logger wrapper pattern used
// by message-bus style teachers into a logrus-backed implementation.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging contract every bus/network/scheduler/worker
// component depends on. Components never import logrus directly; they
// depend on this interface so tests can substitute a recording logger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// With returns a derived logger carrying the given structured fields
	// on every subsequent call.
	With(fields Fields) Logger
}

// Fields is a structured field set attached to a log line.
type Fields map[string]interface{}

// logrusLogger is the default Logger, backed by a *logrus.Entry.
type logrusLogger struct {
	entry *logrus.Entry
}

// New creates the default Logger, writing to w at the given level.
func New(w io.Writer, level logrus.Level) Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(level)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		QuoteEmptyFields: true,
	})
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

// Default returns the default Logger, writing to stderr at info level.
func Default() Logger {
	return New(os.Stderr, logrus.InfoLevel)
}

// Discard returns a Logger that drops every line; useful for tests that
// don't care about log output but still need to construct a component.
func Discard() Logger {
	return New(io.Discard, logrus.PanicLevel)
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) With(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

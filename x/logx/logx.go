// Package logx builds the node's logrus loggers.
package logx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a root logger writing to stderr at the named level.
// Unknown level names fall back to info.
func New(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Component tags a logger with the owning component.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}

// OrDiscard returns e, or a logger that drops everything when e is nil.
func OrDiscard(e *logrus.Entry) *logrus.Entry {
	if e != nil {
		return e
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

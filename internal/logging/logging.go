// Package logging wraps logrus with the field-map helpers used across the
// engine. Components take a *logrus.Entry so tests can capture output.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields represents structured log fields.
type Fields = logrus.Fields

var base = newLogger(os.Stderr, logrus.InfoLevel)

func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// Setup configures the shared logger. Unknown levels fall back to info.
func Setup(w io.Writer, level string, json bool) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetOutput(w)
	base.SetLevel(lvl)
	if json {
		base.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
}

// For returns a logger tagged with the component name.
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// Discard returns an entry that drops everything. Useful as a default.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func Info(msg string, fields Fields)  { base.WithFields(fields).Info(msg) }
func Warn(msg string, fields Fields)  { base.WithFields(fields).Warn(msg) }
func Debug(msg string, fields Fields) { base.WithFields(fields).Debug(msg) }

// Error logs msg with err attached.
func Error(msg string, err error, fields Fields) {
	base.WithFields(fields).WithError(err).Error(msg)
}

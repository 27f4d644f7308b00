package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the structured-logging interface injected into discovery and
// the scorer so skip-and-continue decisions stay observable without
// coupling the core to a concrete backend.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string, err error)
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogrusLogger is the default Logger backed by logrus.
type LogrusLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewLogrus creates a logrus-backed logger at the given level.
func NewLogrus(level string) Logger {
	l := logrus.New()
	if parsed, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(parsed)
	}
	return &LogrusLogger{logger: l, entry: logrus.NewEntry(l)}
}

func (l *LogrusLogger) Debug(msg string) { l.entry.Debug(msg) }
func (l *LogrusLogger) Info(msg string)  { l.entry.Info(msg) }
func (l *LogrusLogger) Warn(msg string)  { l.entry.Warn(msg) }

func (l *LogrusLogger) Error(msg string, err error) {
	l.entry.WithError(err).Error(msg)
}

func (l *LogrusLogger) WithField(key string, value interface{}) Logger {
	return &LogrusLogger{logger: l.logger, entry: l.entry.WithField(key, value)}
}

func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{logger: l.logger, entry: l.entry.WithFields(fields)}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &LogrusLogger{logger: l, entry: logrus.NewEntry(l)}
}

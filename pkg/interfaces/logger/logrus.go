package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logrus adapts a logrus entry to the Logger contract.
type Logrus struct {
	entry *logrus.Entry
}

var _ Logger = (*Logrus)(nil)

// NewLogrus builds a JSON logrus logger tagged with the service name. The level
// is read from LOG_LEVEL (debug, info, warn, error).
func NewLogrus(service string) *Logrus {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetOutput(os.Stdout)
	base.SetLevel(levelFromEnv(os.Getenv("LOG_LEVEL")))
	entry := logrus.NewEntry(base)
	if service != "" {
		entry = entry.WithField("service", service)
	}
	return &Logrus{entry: entry}
}

// FromLogrus wraps an existing logrus logger.
func FromLogrus(l *logrus.Logger) *Logrus {
	if l == nil {
		l = logrus.New()
	}
	return &Logrus{entry: logrus.NewEntry(l)}
}

func (l *Logrus) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &Logrus{entry: l.entry.WithFields(toLogrus(fields))}
}

func (l *Logrus) Debug(msg string, fields ...Field) { l.entry.WithFields(toLogrus(fields)).Debug(msg) }
func (l *Logrus) Info(msg string, fields ...Field)  { l.entry.WithFields(toLogrus(fields)).Info(msg) }
func (l *Logrus) Warn(msg string, fields ...Field)  { l.entry.WithFields(toLogrus(fields)).Warn(msg) }
func (l *Logrus) Error(msg string, fields ...Field) { l.entry.WithFields(toLogrus(fields)).Error(msg) }

func toLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok && err != nil {
			out[f.Key] = err.Error()
			continue
		}
		out[f.Key] = f.Value
	}
	return out
}

func levelFromEnv(value string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

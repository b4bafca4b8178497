package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusAdapter backs Logger with logrus. Debug mode uses the text formatter
// with full timestamps, otherwise entries are written as JSON.
type LogrusAdapter struct {
	logger *logrus.Logger
}

func NewLogrus(writer io.Writer, level logrus.Level, debugMode bool) *LogrusAdapter {
	l := logrus.New()
	l.SetOutput(writer)
	l.SetLevel(level)

	if debugMode {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return &LogrusAdapter{logger: l}
}

// ParseLogrusLevel maps a level name to logrus, defaulting to info.
func ParseLogrusLevel(name string) logrus.Level {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func (l *LogrusAdapter) entry(component string, fields map[string]interface{}) *logrus.Entry {
	entry := l.logger.WithField("component", component)
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	return entry
}

func (l *LogrusAdapter) Info(component, message string, fields map[string]interface{}) {
	l.entry(component, fields).Info(message)
}

func (l *LogrusAdapter) Error(component string, err error, fields map[string]interface{}) {
	l.entry(component, fields).WithError(err).Error("operation failed")
}

func (l *LogrusAdapter) Warning(component, message string, fields map[string]interface{}) {
	l.entry(component, fields).Warn(message)
}

func (l *LogrusAdapter) Debug(component, message string, fields map[string]interface{}) {
	l.entry(component, fields).Debug(message)
}

package geocoding

import "github.com/sirupsen/logrus"

// leveledLogger routes retryablehttp's retry chatter through logrus
type leveledLogger struct {
	logger *logrus.Logger
}

func (l leveledLogger) fields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{"component": "geocoding"}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(l.fields(keysAndValues)).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(l.fields(keysAndValues)).Warn(msg)
}

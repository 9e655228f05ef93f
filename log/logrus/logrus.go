package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/MeteoSwiss/weathermart"
)

type LogrusLogger struct{ E *logrus.Entry }

var _ weathermart.Logger = LogrusLogger{}

func (l LogrusLogger) Debug(msg string, f weathermart.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f weathermart.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}
func (l LogrusLogger) Warn(msg string, f weathermart.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}
func (l LogrusLogger) Error(msg string, f weathermart.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}

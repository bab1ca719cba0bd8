package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

const RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"

// ConfigureApplicationLogging applies config to logger.
func ConfigureApplicationLogging(logger *logrus.Logger, config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	level, err := parseLogLevel(config.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)
	switch config.Format {
	case FormatJson:
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: RFC3339Milli})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: RFC3339Milli})
	}
	if config.CountLogLines {
		logger.AddHook(NewPrometheusHook())
	}
	return nil
}

package logging

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	FormatText = "text"
	FormatJson = "json"
)

var validLogFormats = map[string]bool{
	FormatText: true,
	FormatJson: true,
}

// Config defines logging configuration.
type Config struct {
	// Log level, e.g. info, debug etc.
	Level string `mapstructure:"level"`
	// Logging format, either text or json
	Format string `mapstructure:"format"`
	// If true, a counter per log level is registered with Prometheus.
	CountLogLines bool `mapstructure:"countLogLines"`
}

// DefaultConfig logs at info level in text format.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatText,
	}
}

func (c Config) Validate() error {
	if _, err := parseLogLevel(c.Level); err != nil {
		return err
	}
	return validateLogFormat(c.Format)
}

func validateLogFormat(f string) error {
	if !validLogFormats[f] {
		formats := maps.Keys(validLogFormats)
		slices.Sort(formats)
		return errors.Errorf("unknown log format: %s. Valid formats are %s", f, formats)
	}
	return nil
}

func parseLogLevel(level string) (logrus.Level, error) {
	l, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel, errors.WithStack(err)
	}
	return l, nil
}

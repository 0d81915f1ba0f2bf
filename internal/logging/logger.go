package logging

import (
	"github.com/sirupsen/logrus"
)

// ConfigureLogger applies config to logger: level, formatter and the redaction hook.
// A nil config leaves the logger untouched.
func ConfigureLogger(logger *logrus.Logger, config *LogConfig) error {
	if config == nil {
		return nil
	}

	level, err := config.Level()
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetReportCaller(config.Verbose >= 3)
	logger.AddHook(NewRedactionHook())

	if config.JSONOutput || config.LogFormat == "json" {
		logger.SetFormatter(NewStructuredFormatter())
		return nil
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  "15:04:05",
		PadLevelText:     true,
		QuoteEmptyFields: true,
	})
	return nil
}

// WithStandardFields tags entries with the component and the run's correlation ID
func WithStandardFields(logger *logrus.Logger, config *LogConfig, component string) *logrus.Entry {
	entry := logger.WithField(StandardFields.Component, component)
	if config != nil && config.CorrelationID != "" {
		entry = entry.WithField(StandardFields.CorrelationID, config.CorrelationID)
	}
	return entry
}

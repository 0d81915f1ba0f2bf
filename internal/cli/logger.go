package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/mrz1836/go-cligolden/internal/logging"
	"github.com/mrz1836/go-cligolden/internal/output"
)

type sessionContextKey struct{}

// session holds what the root pre-run hook sets up for a command
type session struct {
	logger    *logrus.Logger
	logConfig *logging.LogConfig
	out       *output.Writer
	colored   bool
}

// newLogger builds an isolated logger writing to stderr. -vvv adds caller information.
func newLogger(stderr io.Writer, cfg *logging.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(stderr)

	if err := logging.ConfigureLogger(logger, cfg); err != nil {
		return nil, err
	}

	if cfg.Verbose >= 3 && cfg.LogFormat != "json" {
		logger.SetReportCaller(true)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  "15:04:05.000",
			PadLevelText:     true,
			QuoteEmptyFields: true,
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
	}
	return logger, nil
}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

func sessionFrom(ctx context.Context) (*session, error) {
	s, ok := ctx.Value(sessionContextKey{}).(*session)
	if !ok {
		return nil, ErrLoggerNotConfigured
	}
	return s, nil
}

func (s *session) entry(operation string) *logrus.Entry {
	return logging.WithStandardFields(s.logger, s.logConfig, logging.ComponentNames.CLI).
		WithField(logging.StandardFields.Operation, operation)
}

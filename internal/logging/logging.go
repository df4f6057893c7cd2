// Package logging sets up the lokctl file logger. The TUI owns the
// terminal, so log output always goes to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup returns a logger appending to path at the given level. An empty path
// discards all output. An unknown level falls back to info and is reported
// through the returned logger. The caller must close the returned Closer.
func Setup(path, level string) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		DisableColors:   true,
	})

	parsed, levelErr := logrus.ParseLevel(strings.TrimSpace(level))
	if levelErr != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if strings.TrimSpace(path) == "" {
		logger.SetOutput(io.Discard)
		return logger, nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(file)

	if levelErr != nil {
		logger.WithField("level", level).Warn("unknown log level, using info")
	}
	return logger, file, nil
}

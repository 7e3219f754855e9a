package main

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// setupLogger builds the run's structured logger — text-formatted, leveled
// per --log-level, writing to stderr per spec.md §6's "worker failures and
// replacement notices" contract (logrus defaults to os.Stderr).
func setupLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}

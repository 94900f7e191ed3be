package config

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// NewLogger builds a logrus logger from logging configuration. Unknown
// levels fall back to info rather than failing startup.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.ToLower(cfg.Format) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

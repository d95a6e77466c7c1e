package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from the config. Text output by
// default (this is an operator-run CLI); JSON when shipping logs.
func NewLogger(c Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if c.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

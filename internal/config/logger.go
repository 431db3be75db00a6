package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger builds the JSON logger shared by both binaries. An unknown level
// falls back to info.
func (c Config) Logger(service string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log.WithFields(logrus.Fields{"service": service, "env": c.AppEnv})
}

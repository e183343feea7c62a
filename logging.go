package main

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// setupLogging configures the standard logrus logger. The daemon logs JSON,
// the CLI logs plain text.
func setupLogging(level string, daemon bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	log.SetLevel(lvl)

	if daemon {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	}
	return nil
}

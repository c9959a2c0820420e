package monitor

import (
	log "github.com/sirupsen/logrus"
)

// AlertSink interface for pluggable alert delivery.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts to the log at warning level.
type LogSink struct{}

func (LogSink) Send(message string) error {
	log.Warn("[ALERT] " + message)
	return nil
}

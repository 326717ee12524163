// internal/alerting/alerter.go
package alerting

import (
	"log"

	"telemetry-dashboard/internal/data"
	"telemetry-dashboard/internal/metrics"
)

// Broadcaster delivers alerts to dashboard clients.
type Broadcaster interface {
	BroadcastAlert(alert data.Alert)
}

type Alerter struct {
	hub    Broadcaster
	logger *log.Logger
}

func NewAlerter(hub Broadcaster, logger *log.Logger) *Alerter {
	if logger == nil {
		logger = log.Default()
	}
	return &Alerter{hub: hub, logger: logger}
}

// ProcessAlerts logs, counts and broadcasts each alert.
func (a *Alerter) ProcessAlerts(alerts []data.Alert) {
	if len(alerts) == 0 {
		return
	}

	a.logger.Printf("Processing %d alerts", len(alerts))
	for _, alert := range alerts {
		a.logger.Printf("ALERT [%s] %s", alert.Severity, alert.Message)
		metrics.AlertRaised(alert.Severity)
		if a.hub != nil {
			a.hub.BroadcastAlert(alert)
		}
	}
}
